package main

import (
	"context"
	"net/http"
	"time"

	"github.com/desertthunder/playsync/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve starts the HTTP server with the sync stream, history, health and metrics routes.
//
// No write timeout is set so long event streams are not cut off.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.repository()
	if err != nil {
		return err
	}

	metrics := server.NewMetrics()
	handler := server.NewSyncHandler(r.engine(repo, metrics), r.catalogs, repo, r.logger, cmd.String("user"))

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewAppRouter(handler, metrics, r.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.Serve(ctx, srv, r.logger)
}

// serveCommand runs the HTTP server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve sync progress streams, history and metrics over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to [server] host:port)",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "User recorded on jobs that don't name one",
			},
		},
		Action: r.Serve,
	}
}
