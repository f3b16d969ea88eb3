package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/playsync/internal/formatter"
	"github.com/desertthunder/playsync/internal/models"
	"github.com/desertthunder/playsync/internal/server"
	"github.com/desertthunder/playsync/internal/shared"
	"github.com/desertthunder/playsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SyncRun syncs one playlist.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	direction, err := models.ParseDirection(cmd.String("direction"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	return r.runSync(ctx, tasks.JobSpec{
		Direction:        direction,
		Kind:             models.KindPlaylist,
		SourcePlaylistID: cmd.String("playlist"),
		DestinationName:  cmd.String("name"),
		UserID:           cmd.String("user"),
	}, cmd.Bool("json"))
}

// SyncLiked syncs the user's liked tracks into a new playlist.
func (r *Runner) SyncLiked(ctx context.Context, cmd *cli.Command) error {
	direction, err := models.ParseDirection(cmd.String("direction"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	return r.runSync(ctx, tasks.JobSpec{
		Direction:       direction,
		Kind:            models.KindLiked,
		DestinationName: cmd.String("name"),
		UserID:          cmd.String("user"),
	}, cmd.Bool("json"))
}

// runSync runs a job in the foreground, printing every event as it arrives.
func (r *Runner) runSync(ctx context.Context, spec tasks.JobSpec, asJSON bool) error {
	repo, err := r.repository()
	if err != nil {
		return err
	}

	src, dst, err := r.catalogs.Pair(spec.Direction)
	if err != nil {
		return err
	}

	r.logger.Info("starting sync", "direction", spec.Direction, "kind", spec.Kind, "source", spec.SourcePlaylistID)

	events := make(chan tasks.ProgressEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if asJSON {
				r.writeJSON(ev.Payload(), false)
				continue
			}
			r.writePlain("%s\n", r.palette.Event(ev))
		}
	}()

	job, err := r.engine(repo, nil).Run(ctx, spec, src, dst, events)
	close(events)
	<-done

	if err != nil {
		return err
	}
	if asJSON {
		return nil
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete")
	r.writePlain("Playlist: %s\n", job.PlaylistName)
	r.writePlain("Destination: %s\n", job.DestinationID)
	r.writePlain("Synced: %d/%d, failed: %d\n", job.TracksSynced, job.TracksTotal, job.TracksFailed)
	r.writePlain("Job: %s\n", r.palette.Help(job.ID))
	return nil
}

// SyncHistory lists the latest jobs, newest first.
func (r *Runner) SyncHistory(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.repository()
	if err != nil {
		return err
	}

	jobs, err := repo.History(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]server.JobResponse, 0, len(jobs))
		for _, job := range jobs {
			out = append(out, server.NewJobResponse(job))
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteExport(jobs, format, path)
		if err != nil {
			return err
		}
		r.logger.Info("history exported", "path", written, "jobs", len(jobs))
		return nil
	}

	data, err := formatter.Export(jobs, format)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

func syncFlags(withPlaylist bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "direction",
			Aliases: []string{"d"},
			Usage:   "Sync direction (spotify_to_ytmusic, ytmusic_to_spotify or src:dst)",
			Value:   string(models.SpotifyToYouTube),
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Destination playlist name (defaults to the source name)",
		},
		&cli.StringFlag{
			Name:  "user",
			Usage: "User the job is recorded for",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print events as JSON lines",
		},
	}
	if withPlaylist {
		flags = append(flags, &cli.StringFlag{
			Name:     "playlist",
			Aliases:  []string{"p"},
			Usage:    "Source playlist ID",
			Required: true,
		})
	}
	return flags
}

// syncCommand runs sync jobs and inspects their history
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync playlists between services",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Copy a playlist to the other service",
				Flags:  syncFlags(true),
				Action: r.SyncRun,
			},
			{
				Name:   "liked",
				Usage:  "Copy liked tracks into a new playlist on the other service",
				Flags:  syncFlags(false),
				Action: r.SyncLiked,
			},
			{
				Name:  "history",
				Usage: "Show the latest sync jobs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "user",
						Usage: "Only show jobs for this user",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (text, csv, md)",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the export to a file",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SyncHistory,
			},
		},
	}
}
