package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mzsearch/internal/centroid"
	"github.com/desertthunder/mzsearch/internal/formatter"
	"github.com/desertthunder/mzsearch/internal/models"
	"github.com/desertthunder/mzsearch/internal/repositories"
	"github.com/desertthunder/mzsearch/internal/server"
	"github.com/desertthunder/mzsearch/internal/services"
	"github.com/desertthunder/mzsearch/internal/shared"
	"github.com/desertthunder/mzsearch/internal/tasks"
	"github.com/desertthunder/mzsearch/internal/web"
)

// searchEntry is the JSON shape of a recorded search.
type searchEntry struct {
	ID              string              `json:"id"`
	Sequence        int                 `json:"sequence"`
	PeakList        string              `json:"peak_list"`
	Status          models.SearchStatus `json:"status"`
	Progress        float64             `json:"progress"`
	DateDir         string              `json:"date_dir,omitempty"`
	JobID           string              `json:"job_id,omitempty"`
	ResultURL       string              `json:"result_url,omitempty"`
	Identifications int                 `json:"identifications"`
	Error           string              `json:"error,omitempty"`
	StartedAt       string              `json:"started_at,omitempty"`
	CompletedAt     string              `json:"completed_at,omitempty"`
}

func newSearchEntry(job *models.SearchJob) searchEntry {
	e := searchEntry{
		ID:              job.ID(),
		Sequence:        job.Sequence(),
		PeakList:        job.PeakList(),
		Status:          job.Status(),
		Progress:        job.Progress(),
		DateDir:         job.DateDir(),
		JobID:           job.JobID(),
		ResultURL:       job.ResultURL(),
		Identifications: job.Identifications(),
		Error:           job.ErrorMessage(),
	}
	if t := job.StartedAt(); t != nil {
		e.StartedAt = t.Format("2006-01-02T15:04:05Z07:00")
	}
	if t := job.CompletedAt(); t != nil {
		e.CompletedAt = t.Format("2006-01-02T15:04:05Z07:00")
	}
	return e
}

// searchSetup is everything a search run needs before the task is created.
type searchSetup struct {
	peakList *models.PeakList
	client   tasks.MascotClient
	tmpl     *template.Template
	recorder tasks.Recorder
	close    func()
}

func (r *Runner) prepareSearch(cmd *cli.Command) (*searchSetup, error) {
	path := cmd.StringArg("peaklist")
	if path == "" {
		return nil, fmt.Errorf("%w: peak list path", shared.ErrMissingArgument)
	}

	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	pl, err := formatter.ReadPeakList(path)
	if err != nil {
		return nil, err
	}

	client, err := r.mascotClient()
	if err != nil {
		return nil, err
	}

	tmpl, err := services.ParseSubmissionTemplate(r.config.Mascot.TemplatePath)
	if err != nil {
		return nil, err
	}

	setup := &searchSetup{peakList: pl, client: client, tmpl: tmpl, close: func() {}}
	if !cmd.Bool("no-history") {
		db, closeDB, err := r.database()
		if err != nil {
			r.logger.Warn("search history unavailable, continuing without it", "error", err)
		} else {
			setup.recorder = repositories.NewSearchRecorder(db)
			setup.close = closeDB
		}
	}

	return setup, nil
}

// SearchRun exports the peak list, submits it, and reports the outcome.
func (r *Runner) SearchRun(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("tui") {
		fileLogger, err := shared.NewFileLogger("./tmp/mzsearch-tui.log")
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		r.SetLogger(fileLogger)
	}

	setup, err := r.prepareSearch(cmd)
	if err != nil {
		return err
	}
	defer setup.close()

	var outputFormat formatter.Format
	if out := cmd.String("output"); out != "" {
		if outputFormat, err = formatter.FormatFromPath(out); err != nil {
			return err
		}
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	task := tasks.NewSearchTask(setup.peakList, setup.client, tasks.Options{
		Params:     r.config.Search,
		Template:   setup.tmpl,
		Boundary:   r.config.Mascot.Boundary,
		Centroider: centroid.LocalMaxima{NoiseLevel: cmd.Float64("noise")},
		TempDir:    cmd.String("tempdir"),
		Recorder:   setup.recorder,
		Logger:     r.logger,
		Progress:   progressCh,
	})

	if addr := cmd.String("serve"); addr != "" {
		serveCtx, stopServer := context.WithCancel(ctx)
		defer stopServer()

		router := server.NewBasicRouter()
		router.Use(server.Recover(r.logger), server.Logging(r.logger))
		router.Handler(server.NewStatusHandler(task))
		go func() {
			if err := server.Serve(serveCtx, addr, router, r.logger); err != nil {
				r.logger.Error("status server stopped", "error", err)
			}
		}()
	}

	r.logger.Info("starting search", "peak_list", setup.peakList.Name, "task", task.ID())

	var runErr error
	if cmd.Bool("tui") {
		runErr = r.runTUI(ctx, task, progressCh)
	} else {
		runErr = r.runPlain(ctx, task, progressCh)
	}

	state := task.Snapshot()
	if cmd.Bool("json") {
		if err := r.writeJSON(state, true); err != nil {
			return err
		}
	} else if !cmd.Bool("tui") {
		r.printSummary(task.Description(), state, setup.peakList)
	}

	if state.Status == models.StatusFinished {
		if out := cmd.String("output"); out != "" {
			n, err := formatter.WriteIdentifications(setup.peakList, out)
			if err != nil {
				return err
			}
			r.logger.Info("identifications written", "path", out, "rows", n, "format", outputFormat)
			if !cmd.Bool("json") {
				r.writePlain("✓ Wrote %d identified rows to %s\n", n, out)
			}
		}

		if cmd.Bool("open") && state.ResultURL != "" {
			if err := shared.OpenBrowser(state.ResultURL); err != nil {
				r.logger.Warnf("failed to open browser automatically %v", err)
				r.writePlain("Open the result page in your browser:\n%s\n", state.ResultURL)
			}
		}
	}

	return runErr
}

// runPlain prints progress lines while the task runs on this goroutine.
func (r *Runner) runPlain(ctx context.Context, task *tasks.SearchTask, progressCh chan tasks.ProgressUpdate) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		lastPercent := -1
		for update := range progressCh {
			switch update.Phase {
			case tasks.Exporting:
				if update.Step == 0 {
					r.writePlain("📤 %s\n", update.Message)
				}
			case tasks.Searching:
				if update.Step != lastPercent {
					lastPercent = update.Step
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.Done:
			default:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	err := task.Run(ctx)
	close(progressCh)
	<-done
	return err
}

func (r *Runner) printSummary(description string, state tasks.State, pl *models.PeakList) {
	r.writePlain("\n")
	r.writePlainHeader(description)
	r.writePlain("Status: %s\n", state.Status)
	r.writePlain("Progress: %.0f%%\n", state.Percentage()*100)
	if state.Location != nil {
		r.writePlain("Result file: %s\n", state.Location.Path())
	}
	if state.ResultURL != "" {
		r.writePlain("Result page: %s\n", state.ResultURL)
	}
	if state.Message != "" {
		r.writePlain("Error: %s\n", state.Message)
	}
	if state.Status != models.StatusFinished {
		return
	}

	rows := formatter.IdentifiedRows(pl)
	r.writePlain("Identified: %d of %d rows\n", len(rows), len(pl.Rows))
	for _, row := range rows {
		r.writePlain("  %4d  %-30s %s\n", row.Row, sequenceOf(row.Identification), humanize.FtoaWithDigits(row.Identification.IonsScore, 1))
	}
}

// SearchExport writes the MGF export of a peak list.
func (r *Runner) SearchExport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("peaklist")
	if path == "" {
		return fmt.Errorf("%w: peak list path", shared.ErrMissingArgument)
	}

	pl, err := formatter.ReadPeakList(path)
	if err != nil {
		return err
	}

	c := centroid.LocalMaxima{NoiseLevel: cmd.Float64("noise")}

	out := cmd.String("output")
	if out == "" {
		_, err := formatter.ExportMGF(r.output, pl.Rows, c, r.logger)
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	n, err := formatter.ExportMGF(f, pl.Rows, c, r.logger)
	if err != nil {
		return err
	}

	size := "0 B"
	if info, err := f.Stat(); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	r.writePlain("✓ Exported %d of %d rows to %s (%s)\n", n, len(pl.Rows), out, size)
	return nil
}

// SearchHistory lists recorded searches, or serves them as HTML with --serve.
func (r *Runner) SearchHistory(ctx context.Context, cmd *cli.Command) error {
	db, closeDB, err := r.database()
	if err != nil {
		return err
	}
	defer closeDB()

	searches := repositories.NewSearchRepository(db)

	if addr := cmd.String("serve"); addr != "" {
		handler, err := web.NewHistoryHandler(searches, repositories.NewIdentificationRepository(db), r.logger)
		if err != nil {
			return err
		}
		router := server.NewBasicRouter()
		router.Use(server.Recover(r.logger), server.Logging(r.logger))
		router.Handler(handler)

		r.writePlain("Serving search history at http://%s/history (Ctrl+C to stop)\n", displayAddr(addr))
		return server.Serve(ctx, addr, router, r.logger)
	}

	criteria := models.Criteria{"limit": int(cmd.Int("limit"))}
	if status := cmd.String("status"); status != "" {
		s := models.SearchStatus(strings.ToUpper(status))
		if !s.Valid() {
			return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, status)
		}
		criteria["status"] = string(s)
	}

	jobs, err := searches.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		entries := make([]searchEntry, 0, len(jobs))
		for _, job := range jobs {
			entries = append(entries, newSearchEntry(job))
		}
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	if len(jobs) == 0 {
		r.writePlain("No searches recorded.\n")
		return nil
	}

	for _, job := range jobs {
		started := "-"
		if t := job.StartedAt(); t != nil {
			started = humanize.Time(*t)
		}
		r.writePlain("#%-4d %-10s %4.0f%%  %-24s %3d ids  %s\n",
			job.Sequence(), job.Status(), job.Progress()*100, job.PeakList(), job.Identifications(), started)
	}
	return nil
}

// SearchShow prints one search, looked up by ID or by "#<sequence>".
func (r *Runner) SearchShow(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("id")
	if ref == "" {
		return fmt.Errorf("%w: search ID or #sequence", shared.ErrMissingArgument)
	}

	db, closeDB, err := r.database()
	if err != nil {
		return err
	}
	defer closeDB()

	searches := repositories.NewSearchRepository(db)

	var job *models.SearchJob
	if seq, ok := parseSequence(ref); ok {
		job, err = searches.GetBySequence(seq)
	} else {
		job, err = searches.Get(ref)
	}
	if err != nil {
		return err
	}

	idents, err := repositories.NewIdentificationRepository(db).ListBySearch(job.ID())
	if err != nil {
		return err
	}

	if cmd.Bool("open") && job.ResultURL() != "" {
		if err := shared.OpenBrowser(job.ResultURL()); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
		}
	}

	if cmd.Bool("json") {
		out := struct {
			searchEntry
			Rows []identifiedRowEntry `json:"rows"`
		}{searchEntry: newSearchEntry(job), Rows: make([]identifiedRowEntry, 0, len(idents))}
		for _, p := range idents {
			out.Rows = append(out.Rows, identifiedRowEntry{Row: p.RowIndex(), Identification: p.Identification()})
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Search #%d: %s", job.Sequence(), job.PeakList()))
	r.writePlain("ID: %s\n", job.ID())
	r.writePlain("Status: %s (%.0f%%)\n", job.Status(), job.Progress()*100)
	if job.JobID() != "" {
		r.writePlain("Result file: data/%s/%s\n", job.DateDir(), job.JobID())
	}
	if job.ResultURL() != "" {
		r.writePlain("Result page: %s\n", job.ResultURL())
	}
	if job.ErrorMessage() != "" {
		r.writePlain("Error: %s\n", job.ErrorMessage())
	}
	if t := job.StartedAt(); t != nil {
		r.writePlain("Started: %s\n", humanize.Time(*t))
	}

	if len(idents) == 0 {
		r.writePlainln("No identifications recorded.")
		return nil
	}

	r.writePlainln("Identifications (%d):", len(idents))
	for _, p := range idents {
		ident := p.Identification()
		r.writePlain("  %4d  q%-4d %-30s %6.2f  %s\n",
			p.RowIndex(), ident.Query, sequenceOf(ident), ident.IonsScore, strings.Join(ident.Proteins, ";"))
	}
	return nil
}

type identifiedRowEntry struct {
	Row            int                   `json:"row"`
	Identification models.Identification `json:"identification"`
}

func sequenceOf(ident models.Identification) string {
	if ident.ModifiedSequence != "" {
		return ident.ModifiedSequence
	}
	return ident.Sequence
}

func parseSequence(ref string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(ref, "#"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
