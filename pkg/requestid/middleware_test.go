package requestid_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountkit/pkg/requestid"
)

func serve(header string) (ctxID string, rec *httptest.ResponseRecorder) {
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = requestid.FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", nil)
	if header != "" {
		req.Header.Set(requestid.Header, header)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return ctxID, rec
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("generates id", func(t *testing.T) {
		t.Parallel()
		id, rec := serve("")
		require.NotEmpty(t, id)
		assert.Equal(t, id, rec.Header().Get(requestid.Header))
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
	})

	t.Run("reuses valid id", func(t *testing.T) {
		t.Parallel()
		id, rec := serve("edge_abc-123")
		assert.Equal(t, "edge_abc-123", id)
		assert.Equal(t, "edge_abc-123", rec.Header().Get(requestid.Header))
	})

	for _, bad := range []string{"a b", "a/b", "<script>", "id\n", strings.Repeat("x", 129)} {
		t.Run("replaces "+bad, func(t *testing.T) {
			t.Parallel()
			id, _ := serve(bad)
			assert.NotEqual(t, bad, id)
			assert.NotEmpty(t, id)
		})
	}
}

func TestContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, requestid.FromContext(context.Background()))
	ctx := requestid.WithContext(context.Background(), "req-1")
	assert.Equal(t, "req-1", requestid.FromContext(ctx))

	attr, ok := requestid.LoggerExtractor()(ctx)
	require.True(t, ok)
	assert.Equal(t, slog.String("request_id", "req-1"), attr)

	_, ok = requestid.LoggerExtractor()(context.Background())
	assert.False(t, ok)
}
