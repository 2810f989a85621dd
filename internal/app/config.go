package app

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"
)

type GSheetConfig struct {
	CredentialsPath string `toml:"credentials_path"`
	SpreadsheetID   string `toml:"spreadsheet_id"`
	SheetName       string `toml:"sheet_name"`
	Schedule        string `toml:"schedule"`
}

type Config struct {
	Server struct {
		Port string `toml:"port"`
	} `toml:"server"`

	// Admin credentials are compared as plain strings at login. This is an
	// inherited weakness kept on purpose; see DESIGN.md before "fixing" it.
	Admin struct {
		Email    string `toml:"email"`
		Password string `toml:"password"`
	} `toml:"admin"`

	Sessions struct {
		RedisURL   string `toml:"redis_url"`
		CookieName string `toml:"cookie_name"`
		TTLHours   int    `toml:"ttl_hours"`
	} `toml:"sessions"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Uploads struct {
		Dir      string `toml:"dir"`
		MaxBytes int64  `toml:"max_bytes"`
	} `toml:"uploads"`

	// GSheet holds named leaderboard export targets, keyed by export name.
	GSheet map[string]GSheetConfig `toml:"gsheet"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}
	if config.Admin.Email == "" || config.Admin.Password == "" {
		return nil, fmt.Errorf("Admin credentials are not specified in config")
	}

	if config.Sessions.CookieName == "" {
		config.Sessions.CookieName = "mazarin_session"
	}
	if config.Sessions.TTLHours <= 0 {
		config.Sessions.TTLHours = 24
	}
	if config.Database.MigrationsDir == "" {
		config.Database.MigrationsDir = "./migrations"
	}
	if config.Uploads.Dir == "" {
		config.Uploads.Dir = "./uploads"
	}
	if config.Uploads.MaxBytes <= 0 {
		config.Uploads.MaxBytes = 5 << 20
	}

	logger.Debug.Printf("Loaded config: port=%s db=%s uploads=%s", config.Server.Port, config.Database.DSN, config.Uploads.Dir)

	return &config, nil
}
