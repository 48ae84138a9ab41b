package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dgallion1/insurtree/internal/importer"
	"github.com/dgallion1/insurtree/internal/store"
	"github.com/dgallion1/insurtree/internal/telemetry"
)

// MaxStoreAttempts bounds how often a job's batch is written before the job fails.
const MaxStoreAttempts = 3

// storeBackOff spaces store attempts: exponential from one second, capped at 30s, jittered.
func storeBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Worker processes a single import job.
type Worker struct {
	writer     *store.Writer
	log        *slog.Logger
	parseOpts  importer.Options
	newBackOff func() backoff.BackOff
}

func NewWorker(writer *store.Writer, log *slog.Logger, parseOpts importer.Options) *Worker {
	return &Worker{
		writer:     writer,
		log:        log,
		parseOpts:  parseOpts,
		newBackOff: storeBackOff,
	}
}

// Process parses, validates and stores a job's file.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename, "mode", job.Mode)
	status := w.process(ctx, job, log)
	telemetry.ImportJobs.WithLabelValues(string(status)).Inc()
}

func (w *Worker) process(ctx context.Context, job *Job, log *slog.Logger) JobStatus {
	fail := func(phase, msg string) JobStatus {
		job.AddError(msg)
		job.SetStatus(StatusFailed, phase)
		return StatusFailed
	}

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := importer.ForFile(job.Filename, w.parseOpts)
	if err != nil {
		log.Error("unsupported format", "error", err)
		return fail("parsing", err.Error())
	}
	records, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		return fail("parsing", fmt.Sprintf("parse: %s", err))
	}
	job.SetParsed(len(records))
	log.Info("parsed file", "records", len(records))

	// Phase 2: Validate against the current table.
	job.SetStatus(StatusValidating, "validating")
	if err := w.writer.Check(ctx, records, job.Mode); err != nil && !store.IsRetryable(err) {
		log.Warn("validation failed", "error", err)
		return fail("validating", fmt.Sprintf("validate: %s", err))
	}

	// Phase 3: Store, retrying transient failures.
	job.SetStatus(StatusStoring, "storing")
	policy := backoff.WithContext(backoff.WithMaxRetries(w.newBackOff(), MaxStoreAttempts-1), ctx)
	err = backoff.RetryNotify(func() error {
		job.IncrStoreAttempts()
		err := w.writer.Apply(ctx, records, job.Mode)
		if err != nil && !store.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		telemetry.ImportRetries.Inc()
		log.Warn("retryable store error", "wait", wait, "error", err)
	})
	if err != nil {
		log.Error("store failed", "error", err)
		return fail("storing", fmt.Sprintf("store: %s", err))
	}

	job.SetStored(len(records))
	job.SetStatus(StatusCompleted, "done")
	log.Info("import complete", "stored", len(records))
	return StatusCompleted
}
