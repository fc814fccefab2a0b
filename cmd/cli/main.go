package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/obidl-go/internal/app"
	"github.com/yourusername/obidl-go/internal/domain"
	"github.com/yourusername/obidl-go/internal/infrastructure"
	"github.com/yourusername/obidl-go/pkg/logger"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "obidl",
		Short: "obidl - download files from Mega.nz, MediaFire, Google Drive and video sites",
		Long:  `A command-line downloader with per-service strategy fallback, retries and resume.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	getCmd.Flags().StringP("dest", "d", "", "Destination directory (default from config)")
	getCmd.Flags().String("username", "", "Account username for authenticated downloads")
	getCmd.Flags().String("password", "", "Account password for authenticated downloads")
	getCmd.Flags().BoolP("quiet", "q", false, "Suppress the progress bar")

	historyCmd.Flags().String("status", "", "Filter by status (completed, failed, cancelled)")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(installToolsCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSetup loads config and a console logger quiet enough to share the
// terminal with the progress bar.
func loadSetup() (*domain.Config, *zap.Logger) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      "warn",
		Format:     "console",
		OutputPath: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return config, log
}

func openHistory(config *domain.Config, log *zap.Logger) domain.DownloadRepository {
	if !config.History.Enabled {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(config.History.DatabasePath), 0755); err != nil {
		log.Warn("Cannot create history directory", zap.Error(err))
		return nil
	}
	repo, err := infrastructure.NewSQLiteDownloadRepository(config.History.DatabasePath)
	if err != nil {
		log.Warn("History disabled", zap.Error(err))
		return nil
	}
	return repo
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

var getCmd = &cobra.Command{
	Use:   "get [url]",
	Short: "Download a file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config, log := loadSetup()

		destDir, _ := cmd.Flags().GetString("dest")
		if destDir == "" {
			destDir = config.Download.DestDir
		}
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		quiet, _ := cmd.Flags().GetBool("quiet")

		repo := openHistory(config, log)
		orch := buildOrchestrator(config, repo, log)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-interrupt
			fmt.Fprintln(os.Stderr, "\nCancelling...")
			cancel()
		}()

		var reporter *barReporter
		if !quiet {
			reporter = newBarReporter()
		}

		creds := domain.Credential{Identity: username, Secret: password}
		result := orch.Download(ctx, args[0], destDir, reporterOrNil(reporter), creds)
		if reporter != nil {
			reporter.Finish()
		}

		if !result.Success {
			fmt.Fprintf(os.Stderr, "Download failed after %d attempt(s): %v\n",
				len(result.Attempts), result.FinalError)
			os.Exit(1)
		}

		fmt.Printf("Saved %s (%s)\n", result.LocalPath,
			humanize.Bytes(uint64(result.BytesTransferred)))
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [url]",
	Short: "Show what the engine knows about a URL without downloading",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config, log := loadSetup()

		variant := domain.Classify(args[0])
		fmt.Printf("Service:   %s\n", variant)

		link, err := domain.ParseLink(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Object ID: %s\n", link.ObjectID)
		if link.IsFolder {
			fmt.Println("Type:      folder")
		}

		if variant == domain.VariantMega && !link.IsFolder {
			fk, err := infrastructure.UnpackFileKey(link.Key)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			client := infrastructure.NewMegaClient(config.Mega, log)
			info, err := client.PublicFileInfo(context.Background(), link.ObjectID, fk)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Name:      %s\n", info.Name)
			fmt.Printf("Size:      %s\n", humanize.Bytes(uint64(info.Size)))
		}
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past downloads",
	Run: func(cmd *cobra.Command, args []string) {
		config, log := loadSetup()

		repo := openHistory(config, log)
		if repo == nil {
			fmt.Fprintln(os.Stderr, "Error: history is disabled")
			os.Exit(1)
		}

		filters := make(map[string]interface{})
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			filters["status"] = status
		}

		records, err := repo.FindAll(filters)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tSERVICE\tSTATUS\tSIZE\tWHEN")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				truncate(r.ID, 8),
				truncate(r.URL, 48),
				r.Variant,
				r.Status,
				humanize.Bytes(uint64(r.BytesTransferred)),
				humanize.Time(r.CreatedAt))
		}
		w.Flush()
	},
}

var installToolsCmd = &cobra.Command{
	Use:   "install-tools",
	Short: "Install the external download tools (megadl, yt-dlp)",
	Run: func(cmd *cobra.Command, args []string) {
		_, log := loadSetup()

		runner := infrastructure.NewExecToolRunner(log)
		installer := infrastructure.NewToolInstaller(runner, log)
		if err := installer.InstallAll(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("All tools installed")
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
