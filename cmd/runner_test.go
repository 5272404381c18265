package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/mzsearch/internal/models"
	"github.com/desertthunder/mzsearch/internal/repositories"
	"github.com/desertthunder/mzsearch/internal/services"
	"github.com/desertthunder/mzsearch/internal/shared"
	tu "github.com/desertthunder/mzsearch/internal/testing"
)

const peakListJSON = `{
  "name": "liver",
  "rows": [
    {"best_peak": {"mz": 500.25, "rt": 60, "height": 1e6, "fragment_scan": {
      "number": 10, "ms_level": 2, "rt": 60, "precursor_mz": 500.25, "precursor_charge": 2, "centroided": true,
      "data_points": [{"mz": 175.119, "intensity": 1200}, {"mz": 262.151, "intensity": 850.5}]}}},
    {"best_peak": {"mz": 610.1, "rt": 61, "height": 5e5, "fragment_scan": {
      "number": 11, "ms_level": 1, "rt": 61, "centroided": true, "data_points": [{"mz": 610.1, "intensity": 10}]}}},
    {"best_peak": {"mz": 740.36, "rt": 62, "height": 8e5, "fragment_scan": {
      "number": 12, "ms_level": 2, "rt": 62, "precursor_mz": 740.36, "precursor_charge": 2, "centroided": true,
      "data_points": [{"mz": 300.2, "intensity": 400}]}}}
  ]
}`

type stubResultSet struct {
	titles map[int]string
	hits   map[int]*models.PeptideHit
}

func (s stubResultSet) QueryCount() int { return len(s.titles) }
func (s stubResultSet) PeptideHit(q int) (*models.PeptideHit, bool) {
	h, ok := s.hits[q]
	return h, ok
}
func (s stubResultSet) QueryTitle(q int) string { return s.titles[q] }

// stubMascot answers a submission without a server.
type stubMascot struct {
	desc      *services.SubmissionDescriptor
	submitErr error
	results   services.ResultSet
	submitted []byte
}

func (s *stubMascot) Submit(ctx context.Context, body *services.SubmissionBody, observer services.ResponseObserver) (*services.SubmissionDescriptor, error) {
	s.submitted = body.Data
	if body.Sent != nil {
		body.Sent()
	}
	observer.Progress(50)
	observer.Progress(100)
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return s.desc, nil
}

func (s *stubMascot) FetchResults(ctx context.Context, desc *services.SubmissionDescriptor) (services.ResultSet, error) {
	return s.results, nil
}

func (s *stubMascot) ResultPageURL(desc *services.SubmissionDescriptor) string {
	return "http://mascot/cgi/master_results.pl?file=../" + desc.Path()
}

func finishedMascot() *stubMascot {
	return &stubMascot{
		desc: &services.SubmissionDescriptor{DateDir: "20240101", JobFile: "F000042.dat"},
		results: stubResultSet{
			titles: map[int]string{1: "RowIdx 0 (scan=10 rt=60)", 2: "RowIdx 2 (scan=12 rt=62)"},
			hits: map[int]*models.PeptideHit{
				1: {Sequence: "LVNELTEFAK", IonsScore: 61.23, Proteins: []string{"ALBU_BOVIN"}},
			},
		},
	}
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func writePeakList(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "liver.json")
	if err := os.WriteFile(path, []byte(peakListJSON), 0644); err != nil {
		t.Fatalf("failed to write peak list: %v", err)
	}
	return path
}

// runApp runs the root command with a config path that does not exist, so injected config is kept.
func runApp(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	missing := filepath.Join(t.TempDir(), "missing.toml")
	argv := append([]string{"mzsearch", "--config", missing}, args...)
	return newApp(r).Run(context.Background(), argv)
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			mascot := &stubMascot{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Mascot:     mascot,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.mascot != mascot {
				t.Error("expected mascot client to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("builds mascot client from config", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			client, err := runner.mascotClient()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if _, ok := client.(*services.MascotService); !ok {
				t.Errorf("expected *services.MascotService, got %T", client)
			}
		})

		t.Run("rejects malformed install URL", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Mascot.InstallURL = "://nope"
			runner := NewRunner(RunnerOpts{Config: config})

			if _, err := runner.mascotClient(); !errors.Is(err, shared.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("hello %s", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "hello world" {
			t.Errorf("expected 'hello world', got %q", output.String())
		}

		failing := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := failing.writePlain("test"); err == nil {
			t.Error("expected error from failing writer")
		}
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		if len(commands) != 2 {
			t.Errorf("expected setup and search commands, got %d", len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})
}

func TestBefore(t *testing.T) {
	t.Run("loads config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := "[mascot]\ninstall_url = \"http://mascot.example.org/mascot/\"\n[search]\ndatabase = \"NCBIprot\"\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		if err := newApp(runner).Run(context.Background(), []string{"mzsearch", "--config", path, "search"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if runner.config.Mascot.InstallURL != "http://mascot.example.org/mascot/" {
			t.Errorf("expected install URL from file, got %s", runner.config.Mascot.InstallURL)
		}
		if runner.config.Search.Database != "NCBIprot" {
			t.Errorf("expected database from file, got %s", runner.config.Search.Database)
		}
		if runner.config.Search.Enzyme != "Trypsin" {
			t.Errorf("expected default enzyme to be kept, got %s", runner.config.Search.Enzyme)
		}
	})

	t.Run("invalid config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[mascot\n"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		err := newApp(runner).Run(context.Background(), []string{"mzsearch", "--config", path, "search"})
		if !errors.Is(err, shared.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := runApp(t, runner, "setup", "config", "--output", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), "Configuration written") {
			t.Errorf("unexpected output %q", output.String())
		}

		err := runApp(t, runner, "setup", "config", "--output", path)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for existing file, got %v", err)
		}
	})

	t.Run("database", func(t *testing.T) {
		dir := t.TempDir()
		dbPath := filepath.Join(dir, "history.db")
		configPath := filepath.Join(dir, "config.toml")
		content := "[database]\npath = \"" + filepath.ToSlash(dbPath) + "\"\n"
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})
		argv := []string{"mzsearch", "--config", configPath, "setup", "database"}
		if err := newApp(runner).Run(context.Background(), argv); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, dbPath)
		if !strings.Contains(output.String(), "Database ready") {
			t.Errorf("unexpected output %q", output.String())
		}

		output.Reset()
		argv = append(argv, "--rollback")
		if err := newApp(runner).Run(context.Background(), argv); err != nil {
			t.Fatalf("expected rollback to succeed, got %v", err)
		}
		if !strings.Contains(output.String(), "Rolled back") {
			t.Errorf("unexpected output %q", output.String())
		}
	})
}

func TestSearchExport(t *testing.T) {
	t.Run("to stdout", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runApp(t, runner, "search", "export", writePeakList(t)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		mgf := output.String()
		if strings.Count(mgf, "BEGIN IONS") != 2 {
			t.Errorf("expected 2 spectra, got:\n%s", mgf)
		}
		if !strings.Contains(mgf, "TITLE=RowIdx 0") || !strings.Contains(mgf, "TITLE=RowIdx 2") {
			t.Errorf("expected titles for rows 0 and 2, got:\n%s", mgf)
		}
	})

	t.Run("to file", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})
		out := filepath.Join(t.TempDir(), "liver.mgf")

		if err := runApp(t, runner, "search", "export", "--output", out, writePeakList(t)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !strings.Contains(tu.MustReadFile(t, out), "PEPMASS=740.36") {
			t.Error("expected MGF file to contain the second MS/MS row")
		}
		if !strings.Contains(output.String(), "Exported 2 of 3 rows") {
			t.Errorf("unexpected summary %q", output.String())
		}
	})

	t.Run("missing argument", func(t *testing.T) {
		err := runApp(t, NewRunner(RunnerOpts{Output: &bytes.Buffer{}}), "search", "export")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestSearchRun(t *testing.T) {
	t.Run("finished search is recorded and exported", func(t *testing.T) {
		db := setupTestDB(t)
		output := &bytes.Buffer{}
		mascot := finishedMascot()
		runner := NewRunner(RunnerOpts{Output: output, Mascot: mascot, DB: db})
		csvPath := filepath.Join(t.TempDir(), "ids.csv")

		err := runApp(t, runner, "search", "run", "--output", csvPath, "--tempdir", t.TempDir(), writePeakList(t))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		text := output.String()
		for _, want := range []string{"Status: FINISHED", "data/20240101/F000042.dat", "Identified: 1 of 3 rows", "LVNELTEFAK", "Wrote 1 identified rows"} {
			if !strings.Contains(text, want) {
				t.Errorf("expected %q in output:\n%s", want, text)
			}
		}
		if !bytes.Contains(mascot.submitted, []byte("TITLE=RowIdx 2")) {
			t.Error("expected submitted body to carry the MGF export")
		}
		if !strings.Contains(tu.MustReadFile(t, csvPath), "LVNELTEFAK") {
			t.Error("expected identification in CSV output")
		}

		jobs, err := repositories.NewSearchRepository(db).List(nil)
		if err != nil || len(jobs) != 1 {
			t.Fatalf("expected 1 recorded search, got %d (%v)", len(jobs), err)
		}
		if jobs[0].Status() != models.StatusFinished || jobs[0].Identifications() != 1 {
			t.Errorf("unexpected recorded search %s with %d identifications", jobs[0].Status(), jobs[0].Identifications())
		}
	})

	t.Run("no location is an error", func(t *testing.T) {
		db := setupTestDB(t)
		output := &bytes.Buffer{}
		mascot := &stubMascot{submitErr: errors.New("protocol failure: no result location")}
		runner := NewRunner(RunnerOpts{Output: output, Mascot: mascot, DB: db})

		err := runApp(t, runner, "search", "run", "--tempdir", t.TempDir(), writePeakList(t))
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(output.String(), "Status: ERROR") {
			t.Errorf("expected ERROR status in output:\n%s", output.String())
		}

		jobs, _ := repositories.NewSearchRepository(db).List(nil)
		if len(jobs) != 1 || jobs[0].Status() != models.StatusError {
			t.Errorf("expected recorded ERROR search, got %v", jobs)
		}
	})

	t.Run("json state without history", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Mascot: finishedMascot()})

		err := runApp(t, runner, "search", "run", "--no-history", "--json", "--tempdir", t.TempDir(), writePeakList(t))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), `"status": "FINISHED"`) {
			t.Errorf("expected JSON state, got:\n%s", output.String())
		}
	})

	t.Run("unsupported output format", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Mascot: finishedMascot()})

		err := runApp(t, runner, "search", "run", "--no-history", "--output", "ids.xlsx", writePeakList(t))
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSearchHistory(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Mascot: finishedMascot(), DB: db})
	if err := runApp(t, runner, "search", "run", "--tempdir", t.TempDir(), writePeakList(t)); err != nil {
		t.Fatalf("search failed: %v", err)
	}

	t.Run("history", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, DB: db})

		if err := runApp(t, runner, "search", "history"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "#1") || !strings.Contains(output.String(), "FINISHED") {
			t.Errorf("unexpected history output:\n%s", output.String())
		}
	})

	t.Run("history filter", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, DB: db})

		if err := runApp(t, runner, "search", "history", "--status", "error"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "No searches recorded") {
			t.Errorf("expected no ERROR searches, got:\n%s", output.String())
		}

		err := runApp(t, runner, "search", "history", "--status", "bogus")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("history json", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, DB: db})

		if err := runApp(t, runner, "search", "history", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), `"peak_list":"liver"`) {
			t.Errorf("unexpected JSON:\n%s", output.String())
		}
	})

	t.Run("show by sequence", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, DB: db})

		if err := runApp(t, runner, "search", "show", "#1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		text := output.String()
		for _, want := range []string{"Search #1: liver", "data/20240101/F000042.dat", "LVNELTEFAK", "ALBU_BOVIN"} {
			if !strings.Contains(text, want) {
				t.Errorf("expected %q in output:\n%s", want, text)
			}
		}
	})

	t.Run("show unknown", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, DB: db})

		err := runApp(t, runner, "search", "show", "missing-id")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestParseSequence(t *testing.T) {
	tests := []struct {
		ref  string
		want int
		ok   bool
	}{
		{"#12", 12, true},
		{"7", 7, true},
		{"#0", 0, false},
		{"0b6f2c1e-uuid", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, ok := parseSequence(tt.ref)
			if got != tt.want || ok != tt.ok {
				t.Errorf("parseSequence(%q) = %d, %v; want %d, %v", tt.ref, got, ok, tt.want, tt.ok)
			}
		})
	}
}
