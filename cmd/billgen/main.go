package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go-bill-webapp/internal/config"
	"go-bill-webapp/internal/logger"
	"go-bill-webapp/internal/middleware"
	"go-bill-webapp/internal/models"
	"go-bill-webapp/internal/routes"
	"go-bill-webapp/internal/server"
	"go-bill-webapp/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "billgen",
		Short:        "S. S. Enterprises bill generator",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newGenerateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bill form web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.json", "path to the JSON config file")
	return cmd
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:        cfg.Logging.Level,
		Service:      "billgen",
		Version:      version,
		Environment:  cfg.Logging.Environment,
		OutputPath:   cfg.Logging.File,
		EnableCaller: cfg.Logging.Environment != "production",
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	if cfg.Logging.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	monitor := middleware.NewPerformanceMonitor(500*time.Millisecond, log)
	router, err := routes.NewRouter(cfg, log, monitor)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.LogSystemEvent("Starting bill generator", map[string]interface{}{
		"layout":    cfg.Bill.LayoutName,
		"max_items": cfg.Bill.MaxItems,
	})
	return server.RunWithGracefulShutdown(ctx, srv, log, cfg.Server.ShutdownTimeout)
}

func newGenerateCmd() *cobra.Command {
	var inputPath, outputPath, layoutName string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a .docx bill from a JSON request",
		RunE: func(cmd *cobra.Command, args []string) error {
			written, err := generateFile(inputPath, outputPath, layoutName)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), written)
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON bill request")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output .docx path (default derived from the customer name)")
	cmd.Flags().StringVar(&layoutName, "layout", "", "layout preset: enhanced or simple")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// generateFile assembles one bill from a JSON request file and returns the path written.
// The --layout flag overrides the request's own layout.
func generateFile(inputPath, outputPath, layoutName string) (string, error) {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	var request models.BillCreateRequest
	if err := json.Unmarshal(raw, &request); err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", inputPath, err)
	}
	if layoutName != "" {
		request.Layout = layoutName
	}

	layout, err := config.LayoutByName(request.Layout)
	if err != nil {
		return "", err
	}
	bill, err := request.ToBill()
	if err != nil {
		return "", err
	}

	data, err := services.NewDocxService(layout).GenerateBillDocx(bill)
	if err != nil {
		return "", err
	}

	if outputPath == "" {
		defaults := config.Default().Bill
		outputPath = filepath.Join(filepath.Dir(inputPath),
			models.BillFilename(defaults.FilenamePrefix, defaults.FallbackName, bill.CustomerName))
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return outputPath, nil
}
