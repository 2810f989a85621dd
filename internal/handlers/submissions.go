package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/mazarin/internal/app"
	"github.com/shrimpsizemoose/mazarin/internal/metrics"
	"github.com/shrimpsizemoose/mazarin/internal/models"
)

// HandleUpload accepts one multipart PDF from the logged-in student. The
// 5 MiB cap and content-type check live here at the boundary; everything
// past this point deals in stored file keys only.
func (h *PortalHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusCreated
	defer func() {
		metrics.APIRequestDuration.WithLabelValues(
			"/api/v1/submissions",
			r.Method,
			strconv.Itoa(status),
		).Observe(time.Since(start).Seconds())
	}()

	studentID, err := h.service.RequireStudent(r)
	if err != nil {
		status = http.StatusUnauthorized
		unauthorized(w, r, studentLoginPath)
		return
	}

	maxBytes := h.service.Config.Uploads.MaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		status = http.StatusBadRequest
		errorJSON(w, status, fmt.Sprintf("upload must be multipart and at most %d bytes", maxBytes))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		status = http.StatusBadRequest
		errorJSON(w, status, "missing file field")
		return
	}
	defer file.Close()

	if !isPDF(header.Header.Get("Content-Type"), header.Filename) {
		status = http.StatusBadRequest
		errorJSON(w, status, "only PDF uploads are accepted")
		return
	}

	id := uuid.NewString()
	fileKey := id + ".pdf"
	if err := h.service.Files.Save(fileKey, file); err != nil {
		logger.Error.Printf("Failed to store upload: %v", err)
		status = http.StatusInternalServerError
		errorJSON(w, status, "failed to store file")
		return
	}

	sub := &models.Submission{
		ID:         id,
		StudentID:  studentID,
		FileKey:    fileKey,
		Filename:   header.Filename,
		UploadedAt: time.Now().Unix(),
	}
	if err := h.service.Store.CreateSubmission(sub); err != nil {
		logger.Error.Printf("Failed to save submission: %v", err)
		status = http.StatusInternalServerError
		errorJSON(w, status, "failed to save submission")
		return
	}

	if student, err := h.service.Store.GetStudentByID(studentID); err == nil && student != nil {
		metrics.UploadsTotal.WithLabelValues(student.School).Inc()
	}

	writeJSON(w, status, map[string]interface{}{
		"submission": sub,
	})
}

// HandleOwnSubmissions returns the caller's submissions with derived
// count and total score.
func (h *PortalHandler) HandleOwnSubmissions(w http.ResponseWriter, r *http.Request) {
	studentID, err := h.service.RequireStudent(r)
	if err != nil {
		unauthorized(w, r, studentLoginPath)
		return
	}

	agg, err := h.ranker.Aggregate(studentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, agg)
}

// HandleOwnFile streams one of the caller's own submission files. Foreign
// and unknown ids are indistinguishable: both are 404.
func (h *PortalHandler) HandleOwnFile(w http.ResponseWriter, r *http.Request) {
	studentID, err := h.service.RequireStudent(r)
	if err != nil {
		unauthorized(w, r, studentLoginPath)
		return
	}

	h.serveSubmissionFile(w, r, app.StudentPrincipal(studentID))
}

// HandleAdminFile streams any submission file for an admin caller.
func (h *PortalHandler) HandleAdminFile(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RequireAdmin(r); err != nil {
		unauthorized(w, r, adminLoginPath)
		return
	}

	h.serveSubmissionFile(w, r, app.AdminPrincipal())
}

func (h *PortalHandler) serveSubmissionFile(w http.ResponseWriter, r *http.Request, p app.Principal) {
	id := r.PathValue("id")
	if id == "" {
		errorJSON(w, http.StatusBadRequest, "missing submission id")
		return
	}

	sub, rc, err := h.service.FetchSubmissionFile(p, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sub.Filename))
	if _, err := io.Copy(w, rc); err != nil {
		logger.Debug.Printf("Failed streaming submission %s: %v", id, err)
	}
}

func isPDF(contentType, filename string) bool {
	if contentType == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
