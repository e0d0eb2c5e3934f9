package cmd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestOpsHandlerEndpoints(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		pingErr error
		want    int
	}{
		{name: "live", path: "/live", want: http.StatusOK},
		{name: "ready", path: "/ready", want: http.StatusOK},
		{name: "not ready when browser is gone", path: "/ready", pingErr: errors.New("detached"), want: http.StatusServiceUnavailable},
		{name: "live ignores browser", path: "/live", pingErr: errors.New("detached"), want: http.StatusOK},
		{name: "metrics", path: "/metrics", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newOpsHandler(pingFunc(func(context.Context) error { return tt.pingErr }))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestOpsHandlerExposesGoMetrics(t *testing.T) {
	handler := newOpsHandler(pingFunc(func(context.Context) error { return nil }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStreamEventsWritesJSONLines(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	events := make(chan domain.Event, 2)
	events <- domain.Event{Kind: domain.EventSwitched, AccountID: "12", At: at}
	events <- domain.Event{Kind: domain.EventTornDown, AccountID: "12", Reason: domain.ReasonLogout, At: at}
	close(events)

	out := &lockedBuffer{}
	require.NoError(t, streamEvents(context.Background(), out, events))

	assert.Equal(t,
		`{"kind":"switched","account_id":"12","at":"2026-03-01T09:00:00Z"}`+"\n"+
			`{"kind":"torn_down","account_id":"12","reason":"logout","at":"2026-03-01T09:00:00Z"}`+"\n",
		out.String())
}

func TestStreamEventsStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, streamEvents(ctx, &lockedBuffer{}, make(chan domain.Event)))
}
