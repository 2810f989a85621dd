package main

import (
	"flag"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/mazarin/internal/app"
	"github.com/shrimpsizemoose/mazarin/internal/bot"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	cfg, err := bot.ReadConfig(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}

	portalStore, err := app.NewStore(cfg.Database.DSN, cfg.Database.MigrationsDir)
	if err != nil {
		logger.Error.Fatalf("Failed to create store: %v", err)
	}
	defer portalStore.Close()

	b, err := bot.New(cfg, portalStore)
	if err != nil {
		logger.Error.Fatalf("Failed to create bot: %v", err)
	}

	logger.Info.Println("Bot initialized successfully")
	if err := b.Start(); err != nil {
		logger.Error.Fatalf("Bot error: %v", err)
	}
}
