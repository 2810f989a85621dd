package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/mazarin/internal/app"
	"github.com/shrimpsizemoose/mazarin/internal/files"
	"github.com/shrimpsizemoose/mazarin/internal/models"
	"github.com/shrimpsizemoose/mazarin/internal/store/sqlite"
)

func newTestService(t *testing.T) *app.Service {
	t.Helper()

	cfg := &app.Config{}
	cfg.Server.Port = ":0"
	cfg.Admin.Email = "admin@example.org"
	cfg.Admin.Password = "admin-pass"
	cfg.Sessions.CookieName = "mazarin_session"
	cfg.Sessions.TTLHours = 1
	cfg.Uploads.MaxBytes = 5 << 20

	portalStore, err := sqlite.NewSQLiteStore(":memory:", "../../migrations")
	require.NoError(t, err, "Failed to create store")
	t.Cleanup(func() { portalStore.Close() })

	fileStore, err := files.NewStore(t.TempDir())
	require.NoError(t, err, "Failed to create file store")

	return &app.Service{
		Config:   cfg,
		Store:    portalStore,
		Files:    fileStore,
		Sessions: app.NewMemorySessions(),
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *app.Service) {
	t.Helper()

	service := newTestService(t)
	portal := NewPortalHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/register", portal.HandleRegister)
	mux.HandleFunc("POST /api/v1/login", portal.HandleLogin)
	mux.HandleFunc("POST /api/v1/logout", portal.HandleLogout)
	mux.HandleFunc("POST /api/v1/submissions", portal.HandleUpload)
	mux.HandleFunc("GET /api/v1/submissions", portal.HandleOwnSubmissions)
	mux.HandleFunc("GET /api/v1/submissions/{id}/file", portal.HandleOwnFile)
	mux.HandleFunc("GET /api/v1/leaderboard", portal.HandleLeaderboard)
	mux.HandleFunc("POST /api/v1/admin/login", portal.HandleAdminLogin)
	mux.HandleFunc("GET /api/v1/admin/students", portal.HandleAdminStudents)
	mux.HandleFunc("PUT /api/v1/admin/submissions/{id}/score", portal.HandleAssignScore)
	mux.HandleFunc("GET /api/v1/admin/submissions/{id}/file", portal.HandleAdminFile)
	mux.HandleFunc("GET /api/v1/admin/leaderboard/visibility", portal.HandleVisibility)
	mux.HandleFunc("POST /api/v1/admin/leaderboard/visibility", portal.HandleToggleVisibility)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, service
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postJSON(t *testing.T, client *http.Client, url string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func registerStudent(t *testing.T, client *http.Client, baseURL, email, name string) {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/register", models.Registration{
		Email:    email,
		Name:     name,
		School:   "North High",
		Age:      16,
		Password: "hunter22",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func loginStudent(t *testing.T, client *http.Client, baseURL, email string) {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/login", models.Credentials{
		Email:    email,
		Password: "hunter22",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func loginAdmin(t *testing.T, client *http.Client, baseURL string) {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/admin/login", models.Credentials{
		Email:    "admin@example.org",
		Password: "admin-pass",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// uploadPDF posts a small fake PDF and returns the new submission id.
func uploadPDF(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="work.pdf"`)
	hdr.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 test payload"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := client.Post(baseURL+"/api/v1/submissions", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var payload struct {
		Submission models.Submission `json:"submission"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.NotEmpty(t, payload.Submission.ID)
	return payload.Submission.ID
}

func assignScore(t *testing.T, admin *http.Client, baseURL, subID string, score int) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]int{"score": score})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/api/v1/admin/submissions/%s/score", baseURL, subID),
		bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := admin.Do(req)
	require.NoError(t, err)
	return resp
}

func TestRegistration(t *testing.T) {
	server, _ := newTestServer(t)
	client := newClient(t)

	registerStudent(t, client, server.URL, "jane.doe@example.org", "Jane")

	t.Run("duplicate normalized email conflicts", func(t *testing.T) {
		resp := postJSON(t, client, server.URL+"/api/v1/register", models.Registration{
			Email:    "  JANE.DOE@example.org ",
			Name:     "Other Jane",
			School:   "South High",
			Age:      17,
			Password: "hunter22",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("age out of range", func(t *testing.T) {
		resp := postJSON(t, client, server.URL+"/api/v1/register", models.Registration{
			Email:    "old@example.org",
			Name:     "Too Old",
			School:   "Night School",
			Age:      42,
			Password: "hunter22",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSubmissionFlow(t *testing.T) {
	server, _ := newTestServer(t)
	student := newClient(t)
	admin := newClient(t)

	registerStudent(t, student, server.URL, "jane.doe@example.org", "Jane")
	loginStudent(t, student, server.URL, "jane.doe@example.org")
	loginAdmin(t, admin, server.URL)

	first := uploadPDF(t, student, server.URL)
	second := uploadPDF(t, student, server.URL)

	resp := assignScore(t, admin, server.URL, first, 40)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = assignScore(t, admin, server.URL, second, 60)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("own aggregate sums scores", func(t *testing.T) {
		resp, err := student.Get(server.URL + "/api/v1/submissions")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var agg struct {
			Count      int                 `json:"count"`
			TotalScore int                 `json:"total_score"`
			Rows       []models.Submission `json:"submissions"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&agg))
		assert.Equal(t, 2, agg.Count)
		assert.Equal(t, 100, agg.TotalScore)
	})

	t.Run("score bounds", func(t *testing.T) {
		for score, want := range map[int]int{
			-1:  http.StatusBadRequest,
			101: http.StatusBadRequest,
			0:   http.StatusOK,
			100: http.StatusOK,
		} {
			resp := assignScore(t, admin, server.URL, first, score)
			resp.Body.Close()
			assert.Equal(t, want, resp.StatusCode, "score %d", score)
		}
	})

	t.Run("unknown submission id", func(t *testing.T) {
		resp := assignScore(t, admin, server.URL, "does-not-exist", 50)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("student cannot assign scores", func(t *testing.T) {
		resp := assignScore(t, student, server.URL, first, 99)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestFileOwnership(t *testing.T) {
	server, _ := newTestServer(t)
	alice := newClient(t)
	bob := newClient(t)
	admin := newClient(t)

	registerStudent(t, alice, server.URL, "alice@example.org", "Alice")
	loginStudent(t, alice, server.URL, "alice@example.org")
	registerStudent(t, bob, server.URL, "bob@example.org", "Bob")
	loginStudent(t, bob, server.URL, "bob@example.org")
	loginAdmin(t, admin, server.URL)

	subID := uploadPDF(t, alice, server.URL)
	fileURL := fmt.Sprintf("%s/api/v1/submissions/%s/file", server.URL, subID)

	t.Run("owner can download", func(t *testing.T) {
		resp, err := alice.Get(fileURL)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "%PDF")
	})

	t.Run("foreign student gets not found, never the file", func(t *testing.T) {
		resp, err := bob.Get(fileURL)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("admin can download any file", func(t *testing.T) {
		resp, err := admin.Get(fmt.Sprintf("%s/api/v1/admin/submissions/%s/file", server.URL, subID))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestLeaderboardVisibility(t *testing.T) {
	server, _ := newTestServer(t)
	alice := newClient(t)
	bob := newClient(t)
	admin := newClient(t)
	anon := newClient(t)

	registerStudent(t, alice, server.URL, "alice@example.org", "Alice")
	loginStudent(t, alice, server.URL, "alice@example.org")
	registerStudent(t, bob, server.URL, "bob@example.org", "Bob")
	loginAdmin(t, admin, server.URL)

	first := uploadPDF(t, alice, server.URL)
	second := uploadPDF(t, alice, server.URL)
	resp := assignScore(t, admin, server.URL, first, 40)
	resp.Body.Close()
	resp = assignScore(t, admin, server.URL, second, 60)
	resp.Body.Close()

	t.Run("hidden by default for non-admins", func(t *testing.T) {
		resp, err := anon.Get(server.URL + "/api/v1/leaderboard")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin sees it while hidden", func(t *testing.T) {
		resp, err := admin.Get(server.URL + "/api/v1/leaderboard")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("toggle makes it public", func(t *testing.T) {
		resp, err := admin.Post(server.URL+"/api/v1/admin/leaderboard/visibility", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var toggled map[string]bool
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&toggled))
		assert.True(t, toggled["leaderboard_visible"])

		lbResp, err := anon.Get(server.URL + "/api/v1/leaderboard")
		require.NoError(t, err)
		defer lbResp.Body.Close()
		require.Equal(t, http.StatusOK, lbResp.StatusCode)

		var payload struct {
			Rows []models.StudentRank `json:"rows"`
		}
		require.NoError(t, json.NewDecoder(lbResp.Body).Decode(&payload))
		require.Len(t, payload.Rows, 1, "zero-submission student must be excluded")
		assert.Equal(t, "Alice", payload.Rows[0].Name)
		assert.Equal(t, 100, payload.Rows[0].TotalScore)
	})
}

func TestUnauthenticatedBehavior(t *testing.T) {
	server, _ := newTestServer(t)
	anon := newClient(t)

	t.Run("json callers get a structured error", func(t *testing.T) {
		resp, err := anon.Get(server.URL + "/api/v1/submissions")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		assert.NotEmpty(t, payload["error"])
	})

	t.Run("browser navigations get redirected to login", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/submissions", nil)
		require.NoError(t, err)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		resp, err := anon.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/login", resp.Header.Get("Location"))
	})

	t.Run("admin endpoints redirect to admin login", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/admin/students", nil)
		require.NoError(t, err)
		req.Header.Set("Accept", "text/html")

		resp, err := anon.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/admin/login", resp.Header.Get("Location"))
	})

	t.Run("logout without a session is fine", func(t *testing.T) {
		resp, err := anon.Post(server.URL+"/api/v1/logout", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestUploadValidation(t *testing.T) {
	server, _ := newTestServer(t)
	student := newClient(t)

	registerStudent(t, student, server.URL, "jane@example.org", "Jane")
	loginStudent(t, student, server.URL, "jane@example.org")

	t.Run("rejects non-pdf", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="notes.txt"`)
		hdr.Set("Content-Type", "text/plain")
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write([]byte("just text"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		resp, err := student.Post(server.URL+"/api/v1/submissions", mw.FormDataContentType(), &buf)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects missing file field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("note", "no file here"))
		require.NoError(t, mw.Close())

		resp, err := student.Post(server.URL+"/api/v1/submissions", mw.FormDataContentType(), &buf)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
