// internal/store/sqlite/store.go
package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/shrimpsizemoose/mazarin/internal/models"
	"github.com/shrimpsizemoose/mazarin/internal/store"
)

type SQLiteStore struct {
	store.BaseStore
}

func NewSQLiteStore(dsn, migrationsDir string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			return query
		},
		IsUniqueViolation: isUniqueViolation,
	}}

	if err := s.ApplyMigrations(migrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) ApplyMigrations(dir string) error {
	return s.BaseStore.ApplyMigrations(dir, translateToSQLite)
}

// translateToSQLite converts Postgres SQL to SQLite dialect
func translateToSQLite(sql string) string {
	replacements := map[string]string{
		"BIGSERIAL PRIMARY KEY": "INTEGER PRIMARY KEY AUTOINCREMENT",
		"BIGINT":                "INTEGER",
		"BOOLEAN":               "INTEGER",
		"UUID":                  "TEXT",
		"TRUE":                  "1",
		"FALSE":                 "0",
		"now()":                 "CURRENT_TIMESTAMP",
	}
	result := sql
	for from, to := range replacements {
		result = strings.ReplaceAll(result, from, to)
	}
	return result
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func (s *SQLiteStore) CreateStudent(student *models.Student) (int64, error) {
	res, err := s.DB.Exec(`
		INSERT INTO students (email, name, school, class_label, age, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
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

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to resolve created student id: %w", err)
	}
	student.ID = id
	return id, nil
}

// ToggleLeaderboard flips the visibility flag in a single upsert so two
// concurrent toggles serialize on the fixed settings row. An absent row
// counts as hidden, so the first toggle ever yields visible.
func (s *SQLiteStore) ToggleLeaderboard() (bool, error) {
	var visible bool
	err := s.DB.Get(&visible, `
		INSERT INTO settings (id, leaderboard_visible)
		VALUES (1, 1)
		ON CONFLICT(id) DO UPDATE SET
		leaderboard_visible = NOT settings.leaderboard_visible
		RETURNING leaderboard_visible
	`)
	if err != nil {
		return false, fmt.Errorf("failed to toggle leaderboard visibility: %w", err)
	}
	return visible, nil
}
