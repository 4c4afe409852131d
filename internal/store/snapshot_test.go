package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"1","name":"General","description":"Main"},
			{"id":"ops","name":"Operations"}
		]`))
	}))
	defer srv.Close()

	seeds, err := NewHTTPLoader(srv.URL).LoadChannels(context.Background())
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, "General", seeds[0].Name)
	assert.Equal(t, "ops", seeds[1].ID)
	assert.Empty(t, seeds[1].Description)
}

func TestHTTPLoaderErrors(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewHTTPLoader(srv.URL).LoadChannels(context.Background())
		assert.Error(t, err)
	})

	t.Run("bad body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		_, err := NewHTTPLoader(srv.URL).LoadChannels(context.Background())
		assert.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		_, err := NewHTTPLoader("http://127.0.0.1:1").LoadChannels(context.Background())
		assert.Error(t, err)
	})
}
