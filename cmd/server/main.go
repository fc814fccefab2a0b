package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yourusername/obidl-go/api"
	"github.com/yourusername/obidl-go/internal/app"
	"github.com/yourusername/obidl-go/internal/domain"
	"github.com/yourusername/obidl-go/internal/infrastructure"
	"github.com/yourusername/obidl-go/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	// Load .env if present, real environment still wins
	_ = godotenv.Load()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting obidl server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("dest_dir", config.Download.DestDir))

	if err := os.MkdirAll(config.Download.DestDir, 0755); err != nil {
		log.Fatal("Failed to create destination directory", zap.Error(err))
	}

	var repo domain.DownloadRepository
	if config.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(config.History.DatabasePath), 0755); err != nil {
			log.Fatal("Failed to create history directory", zap.Error(err))
		}
		sqlRepo, err := infrastructure.NewSQLiteDownloadRepository(config.History.DatabasePath)
		if err != nil {
			log.Fatal("Failed to initialize repository", zap.Error(err))
		}
		repo = sqlRepo
	}

	orch := buildOrchestrator(config, repo, log)
	manager := app.NewDownloadManager(orch, repo, config.Download.DestDir, log)

	router := api.SetupRouter(manager, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// buildOrchestrator wires the full strategy set behind a fallback policy
func buildOrchestrator(config *domain.Config, repo domain.DownloadRepository, log *zap.Logger) *app.Orchestrator {
	runner := infrastructure.NewExecToolRunner(log)
	transport := infrastructure.NewHTTPTransport()
	megaClient := infrastructure.NewMegaClient(config.Mega, log)

	strategies := []domain.Strategy{
		infrastructure.NewMegaToolStrategy(runner, config.Tools, log),
		infrastructure.NewMegaProtocolStrategy(megaClient, transport, log),
		infrastructure.NewVideoToolStrategy(runner, config.Tools, log),
		infrastructure.NewPageScrapeStrategy(transport, []domain.DirectURLExtractor{
			infrastructure.NewMediaFireExtractor(),
			infrastructure.NewGoogleDriveExtractor(),
		}, log),
		infrastructure.NewDirectTransferStrategy(transport, log),
	}

	retry := app.NewRetryController(config.Retry, log)
	policy := app.NewFallbackPolicy(config.Strategies, strategies, retry, log)
	return app.NewOrchestrator(policy, repo, config.Download.ProgressInterval, log)
}
