package commands

import (
	"context"
	"time"

	"github.com/mscno/provisioner/pkg/metrics"
	"github.com/mscno/provisioner/pkg/telemetry"
	"github.com/mscno/provisioner/server"
)

type ServeCmd struct {
	Addr            string        `help:"Listen address. Overrides the configured one." env:"PROVISIONER_ADDR"`
	ShutdownTimeout time.Duration `help:"Grace period for in-flight requests." default:"30s"`
}

func (c *ServeCmd) Run(ctx *cliCtx, g *Globals) error {
	cfg, err := g.loadConfig(ctx)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}

	tp, err := telemetry.NewTracerProvider(ctx, cfg.Tracing, ctx.Version, ctx.Stdout)
	if err != nil {
		return err
	}
	telemetry.Install(tp)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(flushCtx); err != nil {
			ctx.Logger.Warn("trace flush failed", "error", err)
		}
	}()
	ctx.Logger.Info("tracing ready", "exporter", cfg.Tracing.Exporter, "sample_ratio", cfg.Tracing.SampleRatio)

	var m *metrics.Metrics
	if cfg.Server.MetricsEnabled {
		m = metrics.New()
	}
	svc, err := buildService(ctx, cfg, ctx.Logger, m)
	if err != nil {
		return err
	}
	journal, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return err
	}
	defer journal.Close()
	ctx.Logger.Info("report journal ready", "backend", cfg.Journal.Backend)

	srv := server.New(svc, journal, ctx.Logger, server.Options{
		APIToken:       cfg.Server.APIToken,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		Metrics:        m,
		Version:        ctx.Version,
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(cfg.Server.Addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	ctx.Logger.Info("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
