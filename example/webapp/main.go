// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/stonework-labs/plinth/render"
	"github.com/stonework-labs/plinth/telemetry"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.uber.org/zap"
)

func main() {
	var addr string
	var templatesDir string
	var dev bool

	cmd := &cobra.Command{
		Use:   "webapp",
		Short: "Minimal HTML-serving app wired with telemetry and templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), addr, templatesDir, dev)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().StringVar(&templatesDir, "templates", "templates", "template directory")
	cmd.Flags().BoolVar(&dev, "dev", false, "recompile templates on change")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, addr, templatesDir string, dev bool) error {
	// Missing .env is fine; the environment itself still applies.
	_ = godotenv.Load()

	spans, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return err
	}

	handle, err := telemetry.New("webapp",
		telemetry.WithServiceVersion("0.1.0"),
		telemetry.WithTraceExporter(spans),
	).Init(ctx)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = handle.Shutdown(sctx)
	}()
	log := handle.Logger()

	var renderOpts []render.Option
	if dev {
		renderOpts = append(renderOpts, render.WithReload(), render.WithLogger(log))
	}
	r, err := render.New(templatesDir, renderOpts...)
	if err != nil {
		return err
	}
	defer r.Close()
	if err := r.Insert("title", "plinth webapp"); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		out, err := r.Render("index")
		if err != nil {
			log.Error("failed to render page", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(out))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: otelhttp.NewHandler(mux, "webapp"),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info("listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	case err := <-errCh:
		return err
	}
}
