package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mediaPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.0,
seg0.ts
#EXTINF:5.5,
seg1.ts
#EXT-X-ENDLIST
`

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=1280000,RESOLUTION=640x360
low/index.m3u8
`

func newHLSServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/movie/master.m3u8", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(masterPlaylist))
	})
	mux.HandleFunc("/movie/low/index.m3u8", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(mediaPlaylist))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestProbeMediaPlaylist(t *testing.T) {
	srv := newHLSServer(t)

	d, err := NewProber(srv.Client()).Duration(context.Background(), srv.URL+"/movie/low/index.m3u8")
	require.NoError(t, err)
	assert.InDelta(t, 15.5, d, 1e-9)
}

func TestProbeFollowsMasterPlaylist(t *testing.T) {
	srv := newHLSServer(t)

	d, err := NewProber(srv.Client()).Duration(context.Background(), srv.URL+"/movie/master.m3u8")
	require.NoError(t, err)
	assert.InDelta(t, 15.5, d, 1e-9)
}

func TestProbeNotFound(t *testing.T) {
	srv := newHLSServer(t)

	_, err := NewProber(srv.Client()).Duration(context.Background(), srv.URL+"/missing.m3u8")
	assert.Error(t, err)
}

type countingProber struct {
	calls int
	err   error
}

func (p *countingProber) Duration(context.Context, string) (float64, error) {
	p.calls++
	if p.err != nil {
		return 0, p.err
	}
	return 42, nil
}

func TestServiceCachesDuration(t *testing.T) {
	p := &countingProber{}
	svc := NewService("http://example.test/a.m3u8", p)

	for i := 0; i < 3; i++ {
		d, err := svc.Describe(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Descriptor{URL: "http://example.test/a.m3u8", Duration: 42}, d)
	}
	assert.Equal(t, 1, p.calls)
}

func TestServiceRetriesAfterFailure(t *testing.T) {
	p := &countingProber{err: errors.New("down")}
	svc := NewService("http://example.test/a.m3u8", p)

	_, err := svc.Describe(context.Background())
	require.Error(t, err)

	p.err = nil
	_, err = svc.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls)
}

func TestServiceNotConfigured(t *testing.T) {
	_, err := NewService("", &countingProber{}).Describe(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}
