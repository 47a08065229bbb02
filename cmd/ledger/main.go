package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pbitts/investment-ledger/config"
	"github.com/pbitts/investment-ledger/data"
	"github.com/pbitts/investment-ledger/data/cache"
	"github.com/pbitts/investment-ledger/data/repository"
	"github.com/pbitts/investment-ledger/internal/exporter"
	"github.com/pbitts/investment-ledger/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/pbitts/investment-ledger/internal/externalApi/quoteApi"
	"github.com/pbitts/investment-ledger/internal/model"
	"github.com/pbitts/investment-ledger/internal/reportGenerator/xlsxGenerator"
	"github.com/pbitts/investment-ledger/internal/service/ledgerService"
	"github.com/pbitts/investment-ledger/internal/transport/cli"
	"github.com/pbitts/investment-ledger/utils"
	"github.com/spf13/cobra"
)

func main() {
	var operation string
	var product string

	rootCmd := &cobra.Command{
		Use:           "ledger",
		Short:         "Personal investment ledger: record transactions and yields, derive reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(cli.Operations, operation) {
				return fmt.Errorf("invalid operation %q: choose %s", operation, strings.Join(cli.Operations, ", "))
			}
			prod, err := model.ParseProduct(product)
			if err != nil {
				return err
			}
			return run(operation, prod)
		},
	}

	rootCmd.Flags().StringVarP(&operation, "operation", "o", "", "operation: "+strings.Join(cli.Operations, " | "))
	rootCmd.Flags().StringVarP(&product, "product", "p", "", "product: stocks | yields")
	_ = rootCmd.MarkFlagRequired("operation")
	_ = rootCmd.MarkFlagRequired("product")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func run(operation string, product model.Product) (err error) {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	start := time.Now()
	slog.Info("====START====", slog.String("operation", operation), slog.String("product", string(product)))
	defer func() {
		slog.Info("====END====", slog.Float64("elapsed_seconds", time.Since(start).Seconds()))
	}()

	ctx := utils.CreateCtxWithRqID(context.Background())

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := repository.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	quoteApiClient := quoteApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	// cloud storage is optional: without credentials the api sink reports it
	// as not configured instead of failing at startup
	var cloudStorage exporter.CloudStorage
	if cfg.GoogleDrive.CredentialsFile != "" {
		driveApi, err := googleDriveApi.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("init google drive client: %w", err)
		}
		cloudStorage = driveApi
	}

	reportExporter := exporter.New(cfg, reportGenerator, cloudStorage, os.Stdout)

	ledgerSrv := ledgerService.New(cfg, pgRepo, redisCache, quoteApiClient)

	controller := cli.New(cfg, ledgerSrv, reportExporter, os.Stdin, os.Stdout)

	return controller.Handle(ctx, operation, product)
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
