package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

var errRedisNotConfigured = errors.New("redis notifications are not configured: set notify.redis_url or CA_NOTIFY_REDIS_URL")

func newEventsCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Stream session events published over redis as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.events == nil {
				return errRedisNotConfigured
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			events, err := app.events.Subscribe(ctx)
			if err != nil {
				return err
			}

			return streamEvents(ctx, cmd.OutOrStdout(), events)
		},
	}
}

// streamEvents writes one JSON object per event until ctx ends or the
// channel closes.
func streamEvents(ctx context.Context, w io.Writer, events <-chan domain.Event) error {
	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := enc.Encode(event); err != nil {
				return err
			}
		}
	}
}
