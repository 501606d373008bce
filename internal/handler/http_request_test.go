package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/t77yq/crontab/internal/executor"
)

func TestHTTPRequestHandler(t *testing.T) {
	var mu sync.Mutex
	var gotMethod, gotHeader, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Job")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		if r.URL.Path == "/fail" {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	h := NewHTTPRequestHandler(zaptest.NewLogger(t))
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		err := h.Fire(ctx, executor.Payload{
			"url":     server.URL + "/ok",
			"method":  "post",
			"headers": map[string]interface{}{"X-Job": "report"},
			"body":    `{"n":1}`,
		})
		require.NoError(t, err)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "report", gotHeader)
		assert.Equal(t, `{"n":1}`, gotBody)
	})

	t.Run("Default Method", func(t *testing.T) {
		require.NoError(t, h.Fire(ctx, executor.Payload{"url": server.URL}))

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, http.MethodGet, gotMethod)
	})

	t.Run("Error Status", func(t *testing.T) {
		err := h.Fire(ctx, executor.Payload{"url": server.URL + "/fail"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
		assert.Contains(t, err.Error(), "upstream down")
	})

	t.Run("Missing URL", func(t *testing.T) {
		assert.Error(t, h.Fire(ctx, executor.Payload{}))
	})
}
