package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/shrimpsizemoose/mazarin/internal/models"
)

var (
	// ErrDuplicateEmail is returned when a registration loses the
	// uniqueness race on the normalized email column.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNotFound is returned for lookups and updates against an unknown id.
	ErrNotFound = errors.New("record not found")
)

// settingRowID pins the settings singleton to one key so concurrent
// toggles upsert the same row instead of racing to create new ones.
const settingRowID = 1

type PortalStore interface {
	Close() error
	ApplyMigrations(dir string) error

	CreateStudent(student *models.Student) (int64, error)
	GetStudentByEmail(email string) (*models.Student, error)
	GetStudentByID(id int64) (*models.Student, error)
	ListStudents() ([]models.Student, error)

	CreateSubmission(sub *models.Submission) error
	GetSubmission(id string) (*models.Submission, error)
	ListStudentSubmissions(studentID int64) ([]models.Submission, error)
	SetSubmissionScore(id string, score int) error

	GetSetting() (*models.Setting, error)
	ToggleLeaderboard() (bool, error)

	FetchStudentAggregates() ([]StudentAggregate, error)
}

// BaseStore provides common functionality for different DB implementations
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
	// IsUniqueViolation recognizes the driver-specific duplicate key error.
	IsUniqueViolation func(error) bool
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory, translating dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(fmt.Sprintf("%s/%s", dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}

func (s *BaseStore) GetStudentByEmail(email string) (*models.Student, error) {
	var student models.Student
	query := s.Converter(`
		SELECT id, email, name, school, class_label, age, password_hash, created_at
		FROM students
		WHERE email = ?
	`)

	err := s.DB.Get(&student, query, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student by email: %w", err)
	}
	return &student, nil
}

func (s *BaseStore) GetStudentByID(id int64) (*models.Student, error) {
	var student models.Student
	query := s.Converter(`
		SELECT id, email, name, school, class_label, age, password_hash, created_at
		FROM students
		WHERE id = ?
	`)

	err := s.DB.Get(&student, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student by id: %w", err)
	}
	return &student, nil
}

func (s *BaseStore) ListStudents() ([]models.Student, error) {
	var students []models.Student
	err := s.DB.Select(&students, `
		SELECT id, email, name, school, class_label, age, password_hash, created_at
		FROM students
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

func (s *BaseStore) CreateSubmission(sub *models.Submission) error {
	_, err := s.DB.NamedExec(`
		INSERT INTO submissions (id, student_id, file_key, filename, uploaded_at, score)
		VALUES (:id, :student_id, :file_key, :filename, :uploaded_at, :score)
	`, sub)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (s *BaseStore) GetSubmission(id string) (*models.Submission, error) {
	var sub models.Submission
	query := s.Converter(`
		SELECT id, student_id, file_key, filename, uploaded_at, score
		FROM submissions
		WHERE id = ?
	`)

	err := s.DB.Get(&sub, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &sub, nil
}

func (s *BaseStore) ListStudentSubmissions(studentID int64) ([]models.Submission, error) {
	var subs []models.Submission
	query := s.Converter(`
		SELECT id, student_id, file_key, filename, uploaded_at, score
		FROM submissions
		WHERE student_id = ?
		ORDER BY uploaded_at DESC, id ASC
	`)

	err := s.DB.Select(&subs, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}

func (s *BaseStore) SetSubmissionScore(id string, score int) error {
	query := s.Converter(`
		UPDATE submissions
		SET score = ?
		WHERE id = ?
	`)

	res, err := s.DB.Exec(query, score, id)
	if err != nil {
		return fmt.Errorf("failed to set submission score: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check score update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *BaseStore) GetSetting() (*models.Setting, error) {
	var setting models.Setting
	query := s.Converter(`
		SELECT id, leaderboard_visible
		FROM settings
		WHERE id = ?
	`)

	err := s.DB.Get(&setting, query, settingRowID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return &setting, nil
}

// FetchStudentAggregates computes per-student submission counts and totals
// in a single grouped query, with unscored submissions counted as 0.
// Students with no submissions produce no row.
func (s *BaseStore) FetchStudentAggregates() ([]StudentAggregate, error) {
	var results []StudentAggregate
	err := s.DB.Select(&results, `
		SELECT
			student_id,
			COUNT(*) AS submission_count,
			COALESCE(SUM(COALESCE(score, 0)), 0) AS total_score
		FROM submissions
		GROUP BY student_id
		ORDER BY student_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch student aggregates: %w", err)
	}
	return results, nil
}
