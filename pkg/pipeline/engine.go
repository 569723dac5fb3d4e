// Copyright © 2018 One Concern

package pipeline

import (
	"context"
	"iter"
	"strings"
	"sync"
	"time"

	units "github.com/docker/go-units"
	"github.com/oneconcern/timestream/pkg/errors"
	"github.com/oneconcern/timestream/pkg/results"
	"github.com/oneconcern/timestream/pkg/status"
	"github.com/oneconcern/timestream/pkg/timestream"
	"github.com/segmentio/ksuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNotDecoded is returned when encoding a record which has not been decoded
var ErrNotDecoded = errors.New("record not decoded")

// ErrorPolicy tells how per-record failures affect a run
type ErrorPolicy uint8

// Error policies
const (
	// Warn drops a failed record, logs and records the failure, then continues
	Warn ErrorPolicy = iota
	// Skip drops a failed record silently, then continues
	Skip
	// Raise aborts the run
	Raise
)

var policyNames = [...]string{Warn: "warn", Skip: "skip", Raise: "raise"}

func (p ErrorPolicy) String() string {
	if int(p) < len(policyNames) {
		return policyNames[p]
	}
	return "invalid"
}

// ParseErrorPolicy parses raise, skip or warn
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	for p, name := range policyNames {
		if strings.EqualFold(s, name) {
			return ErrorPolicy(p), nil
		}
	}
	if s == "" {
		return Warn, nil
	}
	return Warn, status.ErrInvalidPolicy.Wrapf("on error: %q: expected raise|skip|warn", s)
}

// FieldError is the report field holding the failure of a record under the Warn policy
const FieldError = "error"

// Source of records, e.g. a timestream.Reader
type Source interface {
	All(context.Context) iter.Seq2[*timestream.Record, error]
}

// RunStatus tells how a run ended
type RunStatus uint8

// Run statuses
const (
	Completed RunStatus = iota
	Cancelled
	Aborted
)

func (s RunStatus) String() string {
	switch s {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "aborted"
	}
}

// Summary of a run
type Summary struct {
	RunID     string
	Status    RunStatus
	Processed int64
	Emitted   int64
	Dropped   int64
	Failed    int64
	Elapsed   time.Duration
}

// Engine runs a step over the records of a source
type Engine struct {
	step       Step
	workers    int
	onError    ErrorPolicy
	table      *results.Table
	flushEvery int64
	flush      func(*results.Table) error
	l          *zap.Logger

	flushMu   sync.Mutex
	processed atomic.Int64
	emitted   atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

// EngineOption is a functor to build an engine with some options
type EngineOption func(*Engine)

// Workers sets the number of parallel workers. With one worker (the default),
// records are processed sequentially in source order. With more, order is not preserved.
func Workers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// OnError sets the policy on per-record failures. Defaults to Warn.
func OnError(p ErrorPolicy) EngineOption {
	return func(e *Engine) {
		e.onError = p
	}
}

// Results sets the table receiving record reports. Defaults to an empty table failing on duplicate instants.
func Results(t *results.Table) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.table = t
		}
	}
}

// FlushEvery calls flush with the results table every n processed records, and at the end of a run
func FlushEvery(n int, flush func(*results.Table) error) EngineOption {
	return func(e *Engine) {
		e.flushEvery = int64(n)
		e.flush = flush
	}
}

// Logger for an engine
func Logger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.l = l
		}
	}
}

// NewEngine builds an engine running a step, usually a Pipeline
func NewEngine(step Step, opts ...EngineOption) *Engine {
	e := &Engine{
		step:    step,
		workers: 1,
		onError: Warn,
		table:   results.NewTable(),
		l:       zap.NewNop(),
	}
	for _, apply := range opts {
		apply(e)
	}
	return e
}

// Table of results
func (e *Engine) Table() *results.Table { return e.table }

// Count of records processed so far by the current or last run
func (e *Engine) Count() int64 { return e.processed.Load() }

// Run processes all records of a source.
//
// Upon cancellation of ctx, no more records are dispatched, records in flight finish,
// the results are flushed and the summary has status Cancelled, with no error.
func (e *Engine) Run(ctx context.Context, src Source) (Summary, error) {
	return e.run(ctx, src, nil)
}

// RunTo processes all records of a source, and writes the emitted records to a sink.
//
// Conflicting writes and duplicate instants always abort the run, whatever the
// error policy, including those raised by a Tee step.
func (e *Engine) RunTo(ctx context.Context, src Source, sink Sink) (Summary, error) {
	return e.run(ctx, src, sink)
}

func (e *Engine) run(ctx context.Context, src Source, sink Sink) (Summary, error) {
	start := time.Now()
	runID := ksuid.New().String()
	for _, counter := range []*atomic.Int64{&e.processed, &e.emitted, &e.dropped, &e.failed} {
		counter.Store(0)
	}
	l := e.l.With(zap.String("run", runID))
	l.Info("run started", zap.Int("workers", e.workers), zap.Stringer("on_error", e.onError))

	var err error
	if e.workers <= 1 {
		err = e.sequential(ctx, src, sink, l)
	} else {
		err = e.parallel(ctx, src, sink, l)
	}

	runStatus := Completed
	switch {
	case err != nil:
		runStatus = Aborted
	case ctx.Err() != nil:
		runStatus = Cancelled
	}
	if ferr := e.doFlush(); ferr != nil {
		l.Warn("results flush failed", zap.Error(ferr))
		if err == nil {
			err = ferr
			runStatus = Aborted
		}
	}

	summary := Summary{
		RunID:     runID,
		Status:    runStatus,
		Processed: e.processed.Load(),
		Emitted:   e.emitted.Load(),
		Dropped:   e.dropped.Load(),
		Failed:    e.failed.Load(),
		Elapsed:   time.Since(start),
	}
	fields := []zap.Field{
		zap.Stringer("status", runStatus),
		zap.Int64("processed", summary.Processed),
		zap.Int64("emitted", summary.Emitted),
		zap.Int64("dropped", summary.Dropped),
		zap.Int64("failed", summary.Failed),
		zap.String("elapsed", units.HumanDuration(summary.Elapsed)),
	}
	if err != nil {
		l.Error("run aborted", append(fields, zap.Error(err))...)
		return summary, err
	}
	l.Info("run done", fields...)
	return summary, nil
}

// sequential processes records one at a time, in source order
func (e *Engine) sequential(ctx context.Context, src Source, sink Sink, l *zap.Logger) error {
	inflight := context.WithoutCancel(ctx)
	for rec, err := range src.All(ctx) {
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		if err := e.handle(inflight, rec, sink, l); err != nil {
			return err
		}
	}
	return nil
}

// parallel dispatches records to a bounded pool of workers
func (e *Engine) parallel(ctx context.Context, src Source, sink Sink, l *zap.Logger) error {
	inflight := context.WithoutCancel(ctx)
	group, gctx := errgroup.WithContext(inflight)
	group.SetLimit(e.workers)

	var srcErr error
	for rec, err := range src.All(ctx) {
		if ctx.Err() != nil || gctx.Err() != nil {
			break
		}
		if err != nil {
			srcErr = err
			break
		}
		group.Go(func() error {
			return e.handle(inflight, rec, sink, l)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return srcErr
}

// handle one record through the step, then the sink, then the results table
func (e *Engine) handle(ctx context.Context, rec *timestream.Record, sink Sink, l *zap.Logger) error {
	defer e.processedOne(l)

	out, err := e.step.Process(ctx, rec)
	if err == nil && out != nil && sink != nil {
		err = sink.Write(ctx, out)
	}
	if fatal(err) {
		e.failed.Inc()
		return err
	}

	switch {
	case err != nil:
		e.failed.Inc()
		switch e.onError {
		case Raise:
			return err
		case Warn:
			l.Warn("record failed",
				zap.Stringer("instant", rec.Instant), zap.String("name", rec.Name), zap.Error(err))
			rec.Set(FieldError, err.Error())
		}
		return e.table.Merge(rec.Instant, rec.Report)
	case out == nil:
		e.dropped.Inc()
		return e.table.Merge(rec.Instant, rec.Report)
	default:
		e.emitted.Inc()
		return e.table.Merge(out.Instant, out.Report)
	}
}

// fatal errors are never downgraded by the error policy
func fatal(err error) bool {
	return errors.Is(err, status.ErrConflictingWrite) || errors.Is(err, status.ErrDuplicateInstant)
}

func (e *Engine) processedOne(l *zap.Logger) {
	n := e.processed.Inc()
	if e.flushEvery <= 0 || n%e.flushEvery != 0 {
		return
	}
	if err := e.doFlush(); err != nil {
		l.Warn("periodic results flush failed", zap.Int64("processed", n), zap.Error(err))
	}
}

func (e *Engine) doFlush() error {
	if e.flush == nil {
		return nil
	}
	e.flushMu.Lock()
	defer e.flushMu.Unlock()
	return e.flush(e.table)
}
