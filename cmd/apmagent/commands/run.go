package commands

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/metricstore/internal/core/observability/log"
	"github.com/zeusync/metricstore/internal/injector"
)

const shutdownTimeout = 10 * time.Second

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Args:  cobra.NoArgs,
		Short: "Run the agent next to an instrumented demo HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			app, cleanup, err := injector.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("initialize agent: %w", err)
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, app, cfg.HTTP.ListenAddr)
		},
	}
}

func run(ctx context.Context, app *injector.App, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("GET /work", func(w http.ResponseWriter, r *http.Request) {
		err := app.Jobs.Run(r.Context(), "default", "DemoJob", time.Now(), func(context.Context) error {
			time.Sleep(time.Duration(rand.IntN(50)) * time.Millisecond)
			return nil
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = fmt.Fprintln(w, "done")
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           app.HTTP.Middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Agent.Run(gctx)
	})
	g.Go(func() error {
		app.Logger.Info("HTTP server listening", log.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
