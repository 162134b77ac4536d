package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/etherlabsio/go-m3u8/m3u8"
)

const maxVariantDepth = 3

var (
	ErrNotConfigured = errors.New("stream is not configured")
	ErrNoVariants    = errors.New("master playlist has no variants")
)

type Descriptor struct {
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
}

// Prober fetches HLS playlists and reports their total duration.
type Prober struct {
	client *http.Client
}

func NewProber(client *http.Client) *Prober {
	if client == nil {
		client = http.DefaultClient
	}

	return &Prober{client: client}
}

// Duration returns the summed segment duration of the playlist at rawURL.
// Master playlists are followed to their first variant.
func (p *Prober) Duration(ctx context.Context, rawURL string) (float64, error) {
	return p.duration(ctx, rawURL, 0)
}

func (p *Prober) duration(ctx context.Context, rawURL string, depth int) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	playlist, err := m3u8.Read(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read playlist: %w", err)
	}

	if !playlist.IsMaster() {
		return playlist.Duration(), nil
	}

	if depth >= maxVariantDepth {
		return 0, fmt.Errorf("too many nested master playlists at %s", rawURL)
	}

	for _, it := range playlist.Items {
		variant, ok := it.(*m3u8.PlaylistItem)
		if !ok {
			continue
		}

		variantURL, err := resolve(rawURL, variant.URI)
		if err != nil {
			return 0, err
		}

		return p.duration(ctx, variantURL, depth+1)
	}

	return 0, ErrNoVariants
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}

	return b.ResolveReference(r).String(), nil
}

type iProber interface {
	Duration(context.Context, string) (float64, error)
}

// Service describes the single configured stream. The duration is probed
// on first use and cached after a success.
type Service struct {
	url    string
	prober iProber

	mu       sync.Mutex
	duration float64
	probed   bool
}

func NewService(streamURL string, prober iProber) *Service {
	return &Service{url: streamURL, prober: prober}
}

func (s *Service) Describe(ctx context.Context) (Descriptor, error) {
	if s.url == "" {
		return Descriptor{}, ErrNotConfigured
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.probed {
		d, err := s.prober.Duration(ctx, s.url)
		if err != nil {
			return Descriptor{}, fmt.Errorf("failed to probe stream: %w", err)
		}
		s.duration = d
		s.probed = true
	}

	return Descriptor{URL: s.url, Duration: s.duration}, nil
}
