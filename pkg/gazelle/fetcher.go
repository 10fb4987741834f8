package gazelle

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/crossgaze/crossgaze/pkg/config"
	"github.com/crossgaze/crossgaze/pkg/logger"
	"github.com/crossgaze/crossgaze/pkg/profile"
)

// Fetcher dispatches list fetches to per-tracker clients. It is the fetch
// collaborator behind the profile cache.
type Fetcher struct {
	clients map[string]*Client
	log     *logrus.Entry
}

func NewFetcher(trackers map[string]config.TrackerConfig) *Fetcher {
	clients := make(map[string]*Client, len(trackers))
	for key, cfg := range trackers {
		if cfg.APIKey == "" {
			continue
		}
		clients[strings.ToLower(key)] = NewClient(cfg)
	}

	return &Fetcher{
		clients: clients,
		log:     logger.GetLogger("gazelle"),
	}
}

// Client returns the API client for a configured tracker.
func (f *Fetcher) Client(tracker string) (*Client, bool) {
	c, ok := f.clients[strings.ToLower(tracker)]
	return c, ok
}

// Trackers lists the configured tracker keys.
func (f *Fetcher) Trackers() []string {
	keys := make([]string, 0, len(f.clients))
	for key := range f.clients {
		keys = append(keys, key)
	}
	return keys
}

// FetchList implements profile.Fetcher.
func (f *Fetcher) FetchList(ctx context.Context, tracker string, list profile.ListType) ([]profile.Row, error) {
	client, ok := f.Client(tracker)
	if !ok {
		return nil, fmt.Errorf("tracker %q is not configured (or has no api key)", tracker)
	}

	return client.FetchList(ctx, list)
}
