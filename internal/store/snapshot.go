// Package store consumes the persistent channel store, read-only. Channel
// CRUD against that store lives behind separate HTTP services; the session
// layer only pulls the startup snapshot.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/talkiehq/talkie/internal/domain"
)

// SnapshotLoader fetches the persisted channel list at startup. Callers fall
// back to built-in defaults on error.
type SnapshotLoader interface {
	LoadChannels(ctx context.Context) ([]domain.ChannelSeed, error)
}

// HTTPLoader reads the snapshot from a JSON endpoint.
type HTTPLoader struct {
	url    string
	client *http.Client
}

func NewHTTPLoader(url string) *HTTPLoader {
	return &HTTPLoader{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (l *HTTPLoader) LoadChannels(ctx context.Context) ([]domain.ChannelSeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load channel snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("channel store returned %d", resp.StatusCode)
	}

	var seeds []domain.ChannelSeed
	if err := json.NewDecoder(resp.Body).Decode(&seeds); err != nil {
		return nil, fmt.Errorf("decode channel snapshot: %w", err)
	}
	return seeds, nil
}
