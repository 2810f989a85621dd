package models

import (
	"github.com/go-playground/validator/v10"
)

// Submission is one uploaded PDF. Score is a pointer on purpose: nil means
// the submission has not been scored yet, which is not the same as 0.
type Submission struct {
	ID         string `db:"id" json:"id"`
	StudentID  int64  `db:"student_id" json:"student_id"`
	FileKey    string `db:"file_key" json:"-"`
	Filename   string `db:"filename" json:"filename"`
	UploadedAt int64  `db:"uploaded_at" json:"uploaded_at"`
	Score      *int   `db:"score" json:"score"`
}

// ScoreValue treats an unscored submission as 0 for aggregation.
func (s *Submission) ScoreValue() int {
	if s.Score == nil {
		return 0
	}
	return *s.Score
}

// ScoreAssignment carries an admin's score for one submission. An unknown
// submission id surfaces as not-found from the store, so only the score
// range is validated here.
type ScoreAssignment struct {
	SubmissionID string `json:"submission_id"`
	Score        int    `json:"score" validate:"gte=0,lte=100"`
}

func (a *ScoreAssignment) Validate() error {
	validate := validator.New()
	return validate.Struct(a)
}
