package main

import (
	"flag"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/mazarin/internal/app"
	"github.com/shrimpsizemoose/mazarin/internal/handlers"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	portal := handlers.NewPortalHandler(service)

	http.HandleFunc("POST /api/v1/register", portal.HandleRegister)
	http.HandleFunc("POST /api/v1/login", portal.HandleLogin)
	http.HandleFunc("POST /api/v1/logout", portal.HandleLogout)

	http.HandleFunc("POST /api/v1/submissions", portal.HandleUpload)
	http.HandleFunc("GET /api/v1/submissions", portal.HandleOwnSubmissions)
	http.HandleFunc("GET /api/v1/submissions/{id}/file", portal.HandleOwnFile)
	http.HandleFunc("GET /api/v1/leaderboard", portal.HandleLeaderboard)

	http.HandleFunc("POST /api/v1/admin/login", portal.HandleAdminLogin)
	http.HandleFunc("GET /api/v1/admin/students", portal.HandleAdminStudents)
	http.HandleFunc("PUT /api/v1/admin/submissions/{id}/score", portal.HandleAssignScore)
	http.HandleFunc("GET /api/v1/admin/submissions/{id}/file", portal.HandleAdminFile)
	http.HandleFunc("GET /api/v1/admin/leaderboard/visibility", portal.HandleVisibility)
	http.HandleFunc("POST /api/v1/admin/leaderboard/visibility", portal.HandleToggleVisibility)

	http.HandleFunc("GET /login", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "static/login.html")
	})
	http.HandleFunc("GET /admin/login", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "static/admin_login.html")
	})

	http.Handle("/metrics", promhttp.Handler())

	logger.Info.Printf("Starting mazarin portal on %s", service.Config.Server.Port)
	if err := http.ListenAndServe(service.Config.Server.Port, nil); err != nil {
		logger.Error.Fatalf("Mazarin server failed: %v", err)
	}
}
