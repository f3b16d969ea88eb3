package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/playsync/internal/shared"
	"github.com/desertthunder/playsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SetupDatabase writes a config file if none exists, then initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else if loaded, err := shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load created config, using defaults", "error", err)
		} else {
			config = loaded
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return nil
}

// SetupYouTube stores YouTube Music browser headers from a cURL command or a raw header dump.
//
// Only the session headers are kept; a cookie is required.
func (r *Runner) SetupYouTube(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")
	rawFile := cmd.String("raw-file")

	provided := 0
	for _, s := range []string{curlCmd, curlFile, rawFile} {
		if s != "" {
			provided++
		}
	}
	switch {
	case provided == 0:
		return fmt.Errorf("%w: one of --curl, --curl-file or --raw-file must be provided", shared.ErrMissingArgument)
	case provided > 1:
		return fmt.Errorf("%w: --curl, --curl-file and --raw-file are mutually exclusive", shared.ErrInvalidArgument)
	}

	var headers shared.BrowserHeaders
	var err error

	switch {
	case curlFile != "":
		headers, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	case rawFile != "":
		data, err := os.ReadFile(rawFile)
		if err != nil {
			return fmt.Errorf("failed to read headers file: %w", err)
		}
		headers, err = shared.ParseRawHeaders(string(data))
		if err != nil {
			return fmt.Errorf("failed to parse raw headers: %w", err)
		}
		r.logger.Info("parsed raw headers", "file", rawFile)
	default:
		headers, err = shared.ParseCurlCommand(curlCmd)
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	outputPath := cmd.String("output")
	if outputPath == "" {
		outputPath = r.config.Credentials.YouTube.HeadersPath
	}

	if err := shared.SaveHeadersFile(outputPath, headers); err != nil {
		return err
	}
	r.logger.Info("headers saved", "path", shared.ExpandHome(outputPath), "count", len(headers))

	r.writePlain("%s\n", r.palette.Severity(tasks.SeveritySuccess, "✓ YouTube Music headers saved"))
	r.writePlain("Headers file: %s\n", shared.ExpandHome(outputPath))
	if outputPath != r.config.Credentials.YouTube.HeadersPath {
		r.writePlain("Update config.toml with: credentials.youtube.headers_path = \"%s\"\n", outputPath)
	}
	return nil
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize the database and store credentials",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Create config.toml if missing, then initialize the database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "youtube",
				Usage: "Save YouTube Music browser headers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command copied from the browser's network tab",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "File containing the cURL command",
					},
					&cli.StringFlag{
						Name:  "raw-file",
						Usage: "File containing raw request headers, one per line",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Headers file path (defaults to credentials.youtube.headers_path)",
					},
				},
				Action: r.SetupYouTube,
			},
		},
	}
}
