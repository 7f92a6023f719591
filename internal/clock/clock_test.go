package clock

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fixedLocal = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestResolver(url string) *Resolver {
	r := NewResolver(url, time.Second)
	r.local = func() time.Time { return fixedLocal }
	return r
}

func TestResolveUsesRemoteTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"utc_datetime":"2025-10-20T14:00:00.123456+00:00","timezone":"Etc/UTC"}`))
	}))
	defer srv.Close()

	got, src := newTestResolver(srv.URL).Resolve(context.Background())
	assert.Equal(t, SourceRemote, src)
	assert.True(t, got.Equal(time.Date(2025, 10, 20, 14, 0, 0, 123456000, time.UTC)))
}

func TestResolveFallsBackToLocal(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-success status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		},
		"malformed json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"utc_datetime":`))
		},
		"malformed timestamp": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"utc_datetime":"yesterday"}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			got, src := newTestResolver(srv.URL).Resolve(context.Background())
			assert.Equal(t, SourceLocal, src)
			assert.Equal(t, fixedLocal, got)
		})
	}
}

func TestResolveNetworkErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	got := newTestResolver(url).Now(context.Background())
	assert.Equal(t, fixedLocal, got)
}

func TestResolveWithoutServiceUsesLocal(t *testing.T) {
	got, src := newTestResolver("").Resolve(context.Background())
	assert.Equal(t, SourceLocal, src)
	assert.Equal(t, fixedLocal, got)
}
