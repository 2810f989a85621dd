package export

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/mazarin/internal/app"
	"github.com/shrimpsizemoose/mazarin/internal/scoring"
	"github.com/shrimpsizemoose/mazarin/internal/store"
)

type GSheetExporter struct {
	name          string
	cfg           app.GSheetConfig
	ranker        *scoring.Ranker
	sheetsService *sheets.Service
}

// StartExporters schedules one cron job per configured export target and
// returns the running scheduler. Exports are admin-side artifacts, so the
// standings are pushed regardless of the public visibility flag.
func StartExporters(config *app.Config, portalStore store.PortalStore) (*gocron.Scheduler, error) {
	ctx := context.Background()
	scheduler := gocron.NewScheduler(time.UTC)
	ranker := scoring.NewRanker(portalStore)

	for name, cfg := range config.GSheet {
		svc, err := sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath))
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets service for %s: %w", name, err)
		}

		exporter := &GSheetExporter{
			name:          name,
			cfg:           cfg,
			ranker:        ranker,
			sheetsService: svc,
		}

		if _, err := scheduler.Cron(cfg.Schedule).Do(func() {
			if err := exporter.Export(); err != nil {
				logger.Error.Printf("Export %s failed: %v", exporter.name, err)
			}
		}); err != nil {
			return nil, fmt.Errorf("failed to schedule export %s: %w", name, err)
		}

		logger.Info.Printf("Scheduled leaderboard export %s (%s)", name, cfg.Schedule)
	}

	scheduler.StartAsync()
	return scheduler, nil
}

func (e *GSheetExporter) Export() error {
	ranks, err := e.ranker.Leaderboard(true)
	if err != nil {
		return fmt.Errorf("failed to build standings: %w", err)
	}

	values := [][]interface{}{
		{"rank", "name", "school", "class", "total_score", "submissions"},
	}
	for i, rank := range ranks {
		values = append(values, []interface{}{
			i + 1,
			rank.Name,
			rank.School,
			rank.ClassLabel,
			rank.TotalScore,
			rank.SubmissionCount,
		})
	}

	writeRange := fmt.Sprintf("%s!A1", e.cfg.SheetName)
	_, err = e.sheetsService.Spreadsheets.Values.
		Update(e.cfg.SpreadsheetID, writeRange, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Do()
	if err != nil {
		return fmt.Errorf("failed to write standings: %w", err)
	}

	logger.Info.Printf("Exported %d standings rows to %s", len(ranks), e.cfg.SpreadsheetID)
	return nil
}
