// Package fanout runs independent remote operations concurrently and collects one
// outcome record per operation, in input order.
package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mscno/provisioner"
)

const tracerName = "github.com/mscno/provisioner/pkg/fanout"

// Observer receives one call per finished unit.
type Observer interface {
	ObserveUnit(stage string, success bool, elapsed time.Duration)
}

// Executor carries the settings shared by every Run.
type Executor struct {
	// Limit caps the number of units in flight. Zero runs every unit at once.
	Limit    int
	Logger   *slog.Logger
	Observer Observer
	// Tracer starts one span per unit. Defaults to the global provider's tracer.
	Tracer trace.Tracer
}

// New returns an Executor logging to logger.
func New(logger *slog.Logger, limit int) *Executor {
	return &Executor{Limit: limit, Logger: logger}
}

func (e *Executor) logger() *slog.Logger {
	if e == nil || e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Executor) tracer() trace.Tracer {
	if e == nil || e.Tracer == nil {
		return otel.Tracer(tracerName)
	}
	return e.Tracer
}

func (e *Executor) limit(n int) int {
	if e == nil || e.Limit <= 0 || e.Limit > n {
		return n
	}
	return e.Limit
}

// Run applies fn to every item concurrently. The result has the same length and
// order as items. A unit that returns an error or panics yields a failure record
// and never affects its siblings. Units run with a context detached from ctx's
// cancellation so a dropped caller cannot abandon half of a batch.
func Run[T, R any](ctx context.Context, e *Executor, stage string, items []T, id func(T) string, fn func(context.Context, T) (R, error)) []provisioner.Outcome[R] {
	if len(items) == 0 {
		return []provisioner.Outcome[R]{}
	}
	unitCtx := context.WithoutCancel(ctx)
	logger := e.logger()
	tracer := e.tracer()

	mapper := iter.Mapper[T, provisioner.Outcome[R]]{MaxGoroutines: e.limit(len(items))}
	return mapper.Map(items, func(item *T) provisioner.Outcome[R] {
		unitID := id(*item)
		spanCtx, span := tracer.Start(unitCtx, stage, trace.WithAttributes(attribute.String("unit.id", unitID)))
		defer span.End()

		start := time.Now()
		data, err := call(spanCtx, *item, fn)
		elapsed := time.Since(start)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("unit failed", "stage", stage, "id", unitID, "duration", elapsed, "error", err)
		} else {
			logger.Info("unit succeeded", "stage", stage, "id", unitID, "duration", elapsed)
		}
		if e != nil && e.Observer != nil {
			e.Observer.ObserveUnit(stage, err == nil, elapsed)
		}
		return provisioner.Record(unitID, data, err)
	})
}

func call[T, R any](ctx context.Context, item T, fn func(context.Context, T) (R, error)) (data R, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			data = zero
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, item)
}

// Strings is the identity id function for string items.
func Strings(s string) string { return s }
