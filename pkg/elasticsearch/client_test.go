package elasticsearch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func esServer(t *testing.T, bulkBody string, lines *[]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// go-elasticsearch 会校验产品头
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/_bulk" {
			body, _ := io.ReadAll(r.Body)
			*lines = strings.Split(strings.TrimSpace(string(body)), "\n")
			_, _ = io.WriteString(w, bulkBody)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	}))
}

func TestBulkWrite(t *testing.T) {
	var lines []string
	srv := esServer(t, `{"errors":false,"items":[{"index":{"status":201}}]}`, &lines)
	defer srv.Close()

	c, err := NewClient(Config{Addresses: []string{srv.URL}}, zap.NewNop())
	require.NoError(t, err)

	err = c.BulkWrite(context.Background(), []BulkOperation{
		{Action: "index", Index: "ratings", ID: "r1", Document: map[string]any{"ticker": "DEGEN"}},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"index":{"_index":"ratings","_id":"r1"}}`, lines[0])
	assert.JSONEq(t, `{"ticker":"DEGEN"}`, lines[1])
}

func TestBulkWrite_ItemErrors(t *testing.T) {
	var lines []string
	srv := esServer(t, `{"errors":true,"items":[{"index":{"status":400,"error":{"type":"mapper_parsing_exception"}}}]}`, &lines)
	defer srv.Close()

	c, err := NewClient(Config{Addresses: []string{srv.URL}}, zap.NewNop())
	require.NoError(t, err)

	err = c.BulkWrite(context.Background(), []BulkOperation{{Action: "index", Index: "ratings", ID: "r1", Document: map[string]any{}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1")
}
