package store

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
)

// StudentAggregate is one row of the grouped submissions query. It is the
// derived {count, total} pair the leaderboard and admin views are built on.
type StudentAggregate struct {
	StudentID       int64 `db:"student_id"`
	SubmissionCount int   `db:"submission_count"`
	TotalScore      int   `db:"total_score"`
}
