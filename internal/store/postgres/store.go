package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/shrimpsizemoose/mazarin/internal/models"
	"github.com/shrimpsizemoose/mazarin/internal/store"
)

type PostgresStore struct {
	store.BaseStore
}

func NewPostgresStore(dsn, migrationsDir string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PostgresStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			out := query
			for i := 1; strings.Contains(out, "?"); i++ {
				out = strings.Replace(out, "?", fmt.Sprintf("$%d", i), 1)
			}
			return out
		},
		IsUniqueViolation: isUniqueViolation,
	}}

	if err := s.ApplyMigrations(migrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) ApplyMigrations(dir string) error {
	return s.BaseStore.ApplyMigrations(dir, nil)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func (s *PostgresStore) CreateStudent(student *models.Student) (int64, error) {
	var id int64
	err := s.DB.Get(&id, `
		INSERT INTO students (email, name, school, class_label, age, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		student.Email,
		student.Name,
		student.School,
		student.ClassLabel,
		student.Age,
		student.PasswordHash,
		student.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, store.ErrDuplicateEmail
		}
		return 0, fmt.Errorf("failed to create student: %w", err)
	}
	student.ID = id
	return id, nil
}

func (s *PostgresStore) ToggleLeaderboard() (bool, error) {
	var visible bool
	err := s.DB.Get(&visible, `
		INSERT INTO settings (id, leaderboard_visible)
		VALUES (1, TRUE)
		ON CONFLICT (id) DO UPDATE SET
		leaderboard_visible = NOT settings.leaderboard_visible
		RETURNING leaderboard_visible
	`)
	if err != nil {
		return false, fmt.Errorf("failed to toggle leaderboard visibility: %w", err)
	}
	return visible, nil
}
