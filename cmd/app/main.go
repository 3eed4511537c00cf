package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/stackscope/internal"
	pkgconfig "github.com/starford/stackscope/pkg/config"
)

var version = "dev"

var errGapsFound = errors.New("gaps found")

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if v := cmd.String("ui-root"); v != "" {
		cfg.Source.UIRoot = v
	}
	if v := cmd.String("backend-root"); v != "" {
		cfg.Source.BackendRoot = v
	}
	if v := cmd.String("contracts"); v != "" {
		cfg.Contracts.Path = v
	}
	return cfg, nil
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

func analyze(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	_, err = internal.RunAnalyze(ctx, internal.WithConfig(cfg))
	return err
}

func reportGaps(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rep, err := internal.RunGaps(ctx, internal.WithConfig(cfg))
	if err != nil {
		return err
	}
	if cmd.Bool("fail-on-gaps") && !rep.Empty() {
		return errGapsFound
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func main() {
	cmd := &cli.Command{
		Name:    "stackscope",
		Usage:   "Map a Flutter UI and a FastAPI backend into one entity graph and report contract gaps",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "ui-root",
				Usage:   "Flutter project root (overrides source.ui_root)",
				Sources: cli.EnvVars("STACKSCOPE_UI_ROOT"),
			},
			&cli.StringFlag{
				Name:    "backend-root",
				Usage:   "FastAPI project root (overrides source.backend_root)",
				Sources: cli.EnvVars("STACKSCOPE_BACKEND_ROOT"),
			},
			&cli.StringFlag{
				Name:    "contracts",
				Usage:   "Declared API contracts file, .yaml/.json/.csv (overrides contracts.path)",
				Sources: cli.EnvVars("STACKSCOPE_CONTRACTS"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and re-analyze on source changes",
				Action: serve,
			},
			{
				Name:   "analyze",
				Usage:  "Run one analysis and print the summary as JSON",
				Action: analyze,
			},
			{
				Name:   "gaps",
				Usage:  "Run one analysis and print the gap report as JSON",
				Action: reportGaps,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "fail-on-gaps",
						Usage: "Exit non-zero when any gap is reported",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve analysis tools over MCP stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
