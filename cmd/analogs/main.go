package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"analogs/internal/auth"
	"analogs/internal/config"
	"analogs/internal/db"
	"analogs/internal/handlers"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	app := &cli.Command{
		Name:    "analogs",
		Usage:   "A board for posting and browsing song analyses",
		Version: "1.0.0",
		Commands: []*cli.Command{
			serveCommand(logger),
			initDBCommand(logger),
			initConfigCommand(logger),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// loadConfig falls back to the embedded defaults when no config file
// exists at path.
func loadConfig(path string, logger *log.Logger) *config.Config {
	if _, err := os.Stat(path); err != nil {
		logger.Debug("no config file, using defaults", "path", path)
		return config.DefaultConfig()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Fatalf("bad config file %s: %v", path, err)
	}
	return cfg
}

func serveCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web application",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := loadConfig(cmd.String("config"), logger)

			if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
				return err
			}
			dbc, err := db.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer dbc.Close()

			if err := db.Migrate(dbc); err != nil {
				return err
			}

			sessions := auth.NewManager(dbc, cfg.SessionMaxAge())
			h := handlers.New(dbc, sessions, logger, filepath.Join("web", "templates"), cfg.Uploads.Dir)

			root := http.NewServeMux()
			root.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(filepath.Join("web", "static")))))
			root.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Uploads.Dir))))
			root.Handle("/", h.Router())

			srv := handlers.Chain(root, handlers.WithRecover(logger), handlers.WithLogging(logger))

			logger.Info("listening", "addr", cfg.Addr())
			return http.ListenAndServe(cfg.Addr(), srv)
		},
	}
}

func initDBCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "init-db",
		Usage: "Clear existing data and create fresh tables",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := loadConfig(cmd.String("config"), logger)

			if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
				return err
			}
			dbc, err := db.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer dbc.Close()

			if err := db.Reset(dbc); err != nil {
				return err
			}
			logger.Info("initialized the database", "path", cfg.Database.Path)
			return nil
		},
	}
}

func initConfigCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "init-config",
		Usage: "Write an example config.toml",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.String("config")
			if err := config.CreateConfigFile(path); err != nil {
				return err
			}
			logger.Info("wrote config file", "path", path)
			return nil
		},
	}
}
