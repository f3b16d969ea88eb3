package services

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playsync/internal/models"
	"github.com/desertthunder/playsync/internal/shared"
)

// Factory builds per-job catalog clients from the application config.
//
// Credentials are read on every call so a refreshed token or headers file is picked up without a restart.
type Factory struct {
	config     *shared.Config
	logger     *log.Logger
	httpClient *http.Client
}

// NewFactory creates a Factory. A nil logger discards output.
func NewFactory(config *shared.Config, logger *log.Logger, httpClient *http.Client) *Factory {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Factory{config: config, logger: logger, httpClient: httpClient}
}

// Catalog builds the client for a single service.
func (f *Factory) Catalog(tag models.ServiceTag) (Catalog, error) {
	creds := f.config.Credentials

	switch tag {
	case models.Spotify:
		opts := f.options(creds.Spotify.BatchSize, tag)
		catalog, err := NewSpotifyCatalog(SpotifyCredentials{AccessToken: creds.Spotify.AccessToken}, creds.Spotify.APIURL, opts)
		if err != nil {
			return nil, err
		}
		return catalog, nil
	case models.YouTubeMusic:
		yt := YouTubeCredentials{AuthFile: creds.YouTube.AuthFile}
		if yt.AuthFile == "" {
			headers, err := shared.LoadHeadersFile(creds.YouTube.HeadersPath)
			if err != nil {
				return nil, fmt.Errorf("%w: youtube music headers: %v", shared.ErrMissingCredentials, err)
			}
			yt.Headers = headers
		}
		catalog, err := NewYouTubeCatalog(creds.YouTube.ProxyURL, yt, f.options(creds.YouTube.BatchSize, tag))
		if err != nil {
			return nil, err
		}
		return catalog, nil
	default:
		return nil, fmt.Errorf("%w: unknown service %q", shared.ErrInvalidArgument, tag)
	}
}

// Pair builds the source and destination catalogs for a direction.
func (f *Factory) Pair(direction models.Direction) (src, dst Catalog, err error) {
	if src, err = f.Catalog(direction.Source()); err != nil {
		return nil, nil, err
	}
	if dst, err = f.Catalog(direction.Destination()); err != nil {
		return nil, nil, err
	}
	return src, dst, nil
}

func (f *Factory) options(batchSize int, tag models.ServiceTag) Options {
	opts := OptionsFromConfig(f.config.Sync, batchSize, shared.WithLogger(f.logger, "service", string(tag)))
	opts.HTTPClient = f.httpClient
	return opts
}
