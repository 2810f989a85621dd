package models

// Setting is the singleton configuration row. The store pins it to a fixed
// key so that concurrent toggles cannot create a second row.
type Setting struct {
	ID                 int64 `db:"id" json:"-"`
	LeaderboardVisible bool  `db:"leaderboard_visible" json:"leaderboard_visible"`
}

// StudentRank is one leaderboard row. It carries no email and no password
// hash: the leaderboard is the only student-facing view of other students.
type StudentRank struct {
	StudentID       int64  `json:"student_id"`
	Name            string `json:"name"`
	School          string `json:"school"`
	ClassLabel      string `json:"class_label"`
	TotalScore      int    `json:"total_score"`
	SubmissionCount int    `json:"submission_count"`
}

// StudentOverview is the admin dashboard row: full student record plus
// derived totals. Totals are computed per request, never persisted.
type StudentOverview struct {
	Student
	TotalScore      int `json:"total_score"`
	SubmissionCount int `json:"submission_count"`
}
