package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/cookie-accounts-cli/internal/application"
	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var errBrowserDetached = errors.New("browser event stream closed")

func newDaemonCmd(app *app) *cobra.Command {
	var keepSession bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Attach to the browser and keep the account session in step with its tabs",
		Long:  "daemon restores the persisted session, tears it down when its tabs close, the browser goes away, or the registry stops backing it, and follows switches made by other ca processes. Events are printed to stdout as JSON lines.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runDaemon(ctx, app, cmd.OutOrStdout(), keepSession)
		},
	}

	cmd.Flags().BoolVar(&keepSession, "keep-session", false, "Leave the session in place on shutdown instead of treating it as a browser suspend")

	return cmd
}

func runDaemon(ctx context.Context, app *app, out io.Writer, keepSession bool) error {
	if err := app.browser.Ping(ctx); err != nil {
		return err
	}

	reconciler := application.NewReconciler(app.coordinator, app.browser, application.ReconcilerOptions{
		Policy:            app.cfg.Reconcile,
		InactivityTimeout: app.cfg.Session.InactivityTimeout,
		Logger:            app.logger,
	})

	events := app.hub.Subscribe(ctx)
	// Watch before Restore so a switch or logout racing the restore is
	// still delivered as a storage change.
	changes, err := app.state.Watch(ctx, app.logger)
	if err != nil {
		return fmt.Errorf("watch state file: %w", err)
	}
	if err := app.coordinator.Restore(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := reconciler.Run(gctx); err != nil {
			return err
		}
		return errBrowserDetached
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case _, ok := <-changes:
				if !ok {
					return nil
				}
				reconciler.Enqueue(domain.Trigger{Kind: domain.TriggerStorageChanged})
			}
		}
	})
	g.Go(func() error {
		return streamEvents(gctx, out, events)
	})

	if app.cfg.Daemon.Listen != "" {
		server := newOpsServer(app.cfg.Daemon.Listen, app.browser)
		g.Go(func() error {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve metrics and health: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), opsShutdownPeriod)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	app.logger.Info("daemon started", "policy", app.cfg.Reconcile, "state", app.state.Path(), "listen", app.cfg.Daemon.Listen)
	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, errBrowserDetached) {
		err = nil
	}

	if !keepSession {
		if teardownErr := app.coordinator.TeardownCurrentSession(context.WithoutCancel(ctx), domain.ReasonSuspend); teardownErr != nil {
			err = errors.Join(err, teardownErr)
		}
	}
	app.logger.Info("daemon stopped", "kept_session", keepSession)

	return err
}
