package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/ronnes/glucolog/internal"
	"github.com/ronnes/glucolog/internal/codec"
	"github.com/ronnes/glucolog/internal/mcpserver"
	"github.com/ronnes/glucolog/internal/store"
	"github.com/ronnes/glucolog/internal/tracker"
	pkgconfig "github.com/ronnes/glucolog/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// openService opens the store and loads the record collections for the
// offline subcommands. The returned cleanup closes the store.
func openService(cfg *internal.Config) (*tracker.Service, func(), error) {
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	svc := tracker.NewService(db, nil)
	if _, err := svc.Load(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("load records: %w", err)
	}
	return svc, func() { db.Close() }, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func exportBackup(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	format := cmd.String("format")
	var data []byte
	switch format {
	case "csv":
		data = svc.ExportCSV()
	case "json":
		data, err = svc.ExportJSON()
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (want csv or json)", format)
	}

	out := cmd.String("out")
	if out == "" {
		out = codec.BackupFilename(format)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	fmt.Fprintf(cmd.Writer, "wrote %s\n", out)
	return nil
}

func importBackup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: glucolog import <backup file>")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	result, err := svc.ImportBackup(path, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Writer, "imported %d meals, %d fasting entries (%d dropped)\n",
		len(result.Meals), len(result.FastingEntries), result.Dropped)
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Stdout carries the MCP protocol, so logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return mcpserver.New(svc).ServeStdio()
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "glucolog",
		Usage:  "Meal and glucose tracker with derived spike metrics, reports, and CSV/JSON backups",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API server (default)",
				Action: serve,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:   "export",
				Usage:  "Write the full dataset to a backup file",
				Action: exportBackup,
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:  "format",
						Usage: "Backup format: csv or json",
						Value: "json",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Output path (defaults to a dated backup filename)",
					},
				},
			},
			{
				Name:   "import",
				Usage:  "Replace the dataset from a CSV or JSON backup file",
				Action: importBackup,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tool interface on stdio",
				Action: serveMCP,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
