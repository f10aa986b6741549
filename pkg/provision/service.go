// Package provision orchestrates repository provisioning across the source host
// and the quality-analysis service: creating and decommissioning repositories with
// their team hierarchy, analysis project, token and secrets, growing ruleset
// allow-lists, and managing team membership and permissions.
//
// Every remote call fans out through a fanout.Executor and yields an outcome
// record. Failures are contained per record and folded into the returned report;
// only validation errors and single-repository operations return an error.
package provision

import (
	"log/slog"

	"github.com/mscno/provisioner/pkg/crypto"
	"github.com/mscno/provisioner/pkg/fanout"
)

// Service holds the gateways and the executor shared by every operation. It keeps
// no per-request state and is safe for concurrent use.
type Service struct {
	Host     SourceHost
	Analysis QualityAnalysis
	Sealer   Sealer
	Exec     *fanout.Executor
	Logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSealer replaces the default sealed-box sealer.
func WithSealer(s Sealer) Option {
	return func(svc *Service) { svc.Sealer = s }
}

// WithExecutor replaces the default unbounded executor.
func WithExecutor(e *fanout.Executor) Option {
	return func(svc *Service) { svc.Exec = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) { svc.Logger = l }
}

// New returns a Service over host and analysis.
func New(host SourceHost, analysis QualityAnalysis, opts ...Option) *Service {
	svc := &Service{
		Host:     host,
		Analysis: analysis,
		Sealer:   crypto.Sealer{},
		Logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.Exec == nil {
		svc.Exec = fanout.New(svc.Logger, 0)
	}
	return svc
}
