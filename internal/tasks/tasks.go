package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"text/template"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mzsearch/internal/formatter"
	"github.com/desertthunder/mzsearch/internal/models"
	"github.com/desertthunder/mzsearch/internal/services"
	"github.com/desertthunder/mzsearch/internal/shared"
	"github.com/dustin/go-humanize"
)

// MascotClient is the server side of a search. Implemented by [services.MascotService].
type MascotClient interface {
	Submit(ctx context.Context, body *services.SubmissionBody, observer services.ResponseObserver) (*services.SubmissionDescriptor, error)
	FetchResults(ctx context.Context, desc *services.SubmissionDescriptor) (services.ResultSet, error)
	ResultPageURL(desc *services.SubmissionDescriptor) string
}

// Recorder persists a task's lifecycle. Failures are logged and never fail the search.
type Recorder interface {
	Started(ctx context.Context, taskID, peakList string, at time.Time) error
	Located(ctx context.Context, taskID string, state State) error
	Finished(ctx context.Context, taskID string, state State, attached []Attachment, at time.Time) error
}

// Options configures a [SearchTask]. Zero values fall back to defaults.
type Options struct {
	Params     shared.SearchConfig
	Template   *template.Template
	Boundary   string
	Centroider formatter.Centroider
	TempDir    string
	Recorder   Recorder
	Logger     *log.Logger
	Progress   chan<- ProgressUpdate
}

// SearchTask exports a peak list, submits it, and annotates rows with the results.
//
// Run executes on the caller's goroutine; the getters and Cancel are safe from any goroutine.
type SearchTask struct {
	id       string
	peakList *models.PeakList
	client   MascotClient
	opts     Options
	logger   *log.Logger

	state    atomic.Pointer[State]
	canceled atomic.Bool
}

// NewSearchTask creates a waiting task for peakList.
func NewSearchTask(peakList *models.PeakList, client MascotClient, opts Options) *SearchTask {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	t := &SearchTask{
		id:       shared.GenerateID(),
		peakList: peakList,
		client:   client,
		opts:     opts,
	}
	t.logger = shared.WithLogger(opts.Logger, "task", t.id)
	t.state.Store(&State{Status: models.StatusWaiting})
	return t
}

// ID returns the task identifier.
func (t *SearchTask) ID() string { return t.id }

// PeakList returns the peak list being searched.
func (t *SearchTask) PeakList() *models.PeakList { return t.peakList }

// Snapshot returns the current state.
func (t *SearchTask) Snapshot() State { return *t.state.Load() }

// Status returns the current lifecycle state.
func (t *SearchTask) Status() models.SearchStatus { return t.state.Load().Status }

// FinishedPercentage returns progress in [0, 1].
func (t *SearchTask) FinishedPercentage() float64 { return t.state.Load().Percentage() }

// ErrorMessage returns the failure message of an ERROR task.
func (t *SearchTask) ErrorMessage() string { return t.state.Load().Message }

// Description returns a human-readable summary of the task.
func (t *SearchTask) Description() string {
	desc := "MS/MS identification of " + t.peakList.Name
	if loc := t.state.Load().Location; loc != nil {
		desc += " (" + loc.Path() + ")"
	}
	return desc
}

// CreatedObjects always returns nil: results are applied to the peak list in place.
func (t *SearchTask) CreatedObjects() []any { return nil }

// Cancel requests cooperative cancellation. A task that has not started is canceled at once;
// a running task stops at its next checkpoint.
func (t *SearchTask) Cancel() {
	t.canceled.Store(true)

	cur := t.state.Load()
	if cur.Status == models.StatusWaiting {
		next := *cur
		next.Status = models.StatusCanceled
		if t.state.CompareAndSwap(cur, &next) {
			t.logger.Info("search canceled before start")
		}
	}
}

// Run executes the search. It returns nil when the search finished, an error wrapping
// [shared.ErrCanceled] when it was canceled, and the failure otherwise.
func (t *SearchTask) Run(ctx context.Context) error {
	cur := t.state.Load()
	if cur.Status != models.StatusWaiting {
		if cur.Status == models.StatusCanceled {
			return fmt.Errorf("%w: search canceled before start", shared.ErrCanceled)
		}
		return fmt.Errorf("%w: search already %s", shared.ErrInvalidInput, cur.Status)
	}
	if !t.state.CompareAndSwap(cur, &State{Status: models.StatusProcessing, TotalRows: nominalTotal}) {
		return fmt.Errorf("%w: search canceled before start", shared.ErrCanceled)
	}

	started := time.Now()
	t.logger.Info("search started", "peak_list", t.peakList.Name, "rows", len(t.peakList.Rows))
	if t.opts.Recorder != nil {
		if err := t.opts.Recorder.Started(context.WithoutCancel(ctx), t.id, t.peakList.Name, started); err != nil {
			t.logger.Warn("failed to record search start", "err", err)
		}
	}

	attached, err := t.run(ctx)
	switch {
	case err == nil:
		t.finish(ctx, models.StatusFinished, "", attached)
		t.logger.Info("search finished", "identifications", len(attached), "elapsed", time.Since(started).Round(time.Millisecond))
		return nil
	case errors.Is(err, shared.ErrCanceled) || ctx.Err() != nil:
		t.finish(ctx, models.StatusCanceled, "", nil)
		t.logger.Info("search canceled")
		if errors.Is(err, shared.ErrCanceled) {
			return err
		}
		return fmt.Errorf("%w: %v", shared.ErrCanceled, err)
	default:
		t.finish(ctx, models.StatusError, err.Error(), nil)
		t.logger.Error("search failed", "err", err)
		return err
	}
}

func (t *SearchTask) run(ctx context.Context) ([]Attachment, error) {
	export, err := formatter.ExportToTempFile(t.opts.TempDir, t.opts.Centroider, t.logger)
	if err != nil {
		return nil, err
	}
	defer export.Release()

	rows := t.peakList.Rows
	for i, row := range rows {
		if t.checkpoint(ctx) {
			return nil, shared.ErrCanceled
		}
		if _, err := export.WriteRow(row); err != nil {
			return nil, err
		}
		t.sendProgress(exportRowUpdate(i+1, len(rows)))
	}
	if err := export.Close(); err != nil {
		return nil, err
	}
	if export.Units() == 0 {
		return nil, fmt.Errorf("%w: peak list has no MS/MS spectra to submit", shared.ErrInvalidInput)
	}
	t.logger.Debug("export written", "path", export.Path(), "units", export.Units(), "size", humanize.Bytes(uint64(export.Size())))

	body, err := services.BuildSubmission(t.opts.Template, t.opts.Params, export.Path(), t.opts.Boundary)
	if err != nil {
		return nil, err
	}
	body.Sent = func() { export.Release() }

	t.sendProgress(submitUpdate(export.Units(), humanize.Bytes(uint64(body.Len()))))
	desc, err := t.client.Submit(ctx, body, checkpointObserver{t, ctx})
	if err != nil {
		return nil, err
	}

	resultURL := t.client.ResultPageURL(desc)
	t.publish(func(s *State) {
		s.Location = desc
		s.ResultURL = resultURL
	})
	if t.opts.Recorder != nil {
		if err := t.opts.Recorder.Located(context.WithoutCancel(ctx), t.id, t.Snapshot()); err != nil {
			t.logger.Warn("failed to record result location", "err", err)
		}
	}

	t.sendProgress(fetchUpdate(resultURL))
	rs, err := t.client.FetchResults(ctx, desc)
	if err != nil {
		return nil, err
	}

	t.sendProgress(correlateUpdate(rs.QueryCount()))
	return correlate(rs, rows)
}

// checkpoint reports cancellation by request or by context.
func (t *SearchTask) checkpoint(ctx context.Context) bool {
	return t.canceled.Load() || ctx.Err() != nil
}

// checkpointObserver lets the response scanner consult both cancel sources.
type checkpointObserver struct {
	task *SearchTask
	ctx  context.Context
}

func (o checkpointObserver) Progress(percent int) {
	o.task.publish(func(s *State) { s.FinishedRows = percent })
	o.task.sendProgress(searchProgressUpdate(percent))
}

func (o checkpointObserver) Canceled() bool { return o.task.checkpoint(o.ctx) }

func (t *SearchTask) finish(ctx context.Context, status models.SearchStatus, msg string, attached []Attachment) {
	t.publish(func(s *State) {
		s.Status = status
		s.Message = msg
		s.Identified = len(attached)
	})

	state := t.Snapshot()
	t.sendProgress(doneUpdate(state))

	if t.opts.Recorder != nil {
		if err := t.opts.Recorder.Finished(context.WithoutCancel(ctx), t.id, state, attached, time.Now()); err != nil {
			t.logger.Warn("failed to record search result", "err", err)
		}
	}
}

// publish stores a modified copy of the current state. Only the running goroutine calls it.
func (t *SearchTask) publish(update func(s *State)) {
	next := *t.state.Load()
	update(&next)
	t.state.Store(&next)
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (t *SearchTask) sendProgress(update ProgressUpdate) {
	if t.opts.Progress == nil {
		return
	}
	select {
	case t.opts.Progress <- update:
	default:
	}
}
