package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mzsearch/internal/shared"
	tu "github.com/desertthunder/mzsearch/internal/testing"
)

func newTestService(t *testing.T, serverURL string, client *http.Client) *MascotService {
	t.Helper()
	cfg := shared.MascotConfig{InstallURL: serverURL + "/mascot/", SubmitPath: "cgi/nph-mascot.exe?1"}
	srv, err := NewMascotService(cfg, client, nil, shared.NewLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewMascotService failed: %v", err)
	}
	return srv
}

func testBody(t *testing.T) *SubmissionBody {
	t.Helper()
	body, err := BuildSubmission(nil, shared.DefaultConfig().Search, writeExport(t, sampleMGF), "----test")
	if err != nil {
		t.Fatalf("BuildSubmission failed: %v", err)
	}
	return body
}

func TestMascotService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Defaults", func(t *testing.T) {
			cfg := shared.MascotConfig{
				InstallURL:     "http://mascot.example.org/mascot",
				SubmitPath:     "cgi/nph-mascot.exe?1",
				TimeoutSeconds: 30,
			}
			srv, err := NewMascotService(cfg, nil, nil, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.httpClient.Timeout != 30*time.Second {
				t.Errorf("expected 30s timeout, got %v", srv.httpClient.Timeout)
			}
			if _, ok := srv.parser.(DatParser); !ok {
				t.Errorf("expected DatParser, got %T", srv.parser)
			}
			if srv.SubmitURL() != "http://mascot.example.org/mascot/cgi/nph-mascot.exe?1" {
				t.Errorf("unexpected submit URL %s", srv.SubmitURL())
			}
		})

		t.Run("With Custom Client", func(t *testing.T) {
			client := &http.Client{}
			srv := newTestService(t, "http://localhost", client)
			if srv.httpClient != client {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Invalid Install URL", func(t *testing.T) {
			_, err := NewMascotService(shared.MascotConfig{InstallURL: "ftp://nope", SubmitPath: "x"}, nil, nil, nil)
			if !errors.Is(err, shared.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	})

	t.Run("Submit", func(t *testing.T) {
		t.Run("Streams Progress And Finds The Result File", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST method, got %s", r.Method)
				}
				if r.URL.Path != "/mascot/cgi/nph-mascot.exe" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.Header.Get("Content-Type"); got != "multipart/form-data; boundary=----test" {
					t.Errorf("unexpected content type %s", got)
				}
				if got := r.Header.Get("Cache-Control"); got != "no-cache" {
					t.Errorf("unexpected cache control %s", got)
				}

				mr, err := r.MultipartReader()
				if err != nil {
					t.Errorf("expected multipart body: %v", err)
					return
				}
				sawFile := false
				for {
					part, err := mr.NextPart()
					if err != nil {
						break
					}
					if part.FormName() == "FILE" {
						data, _ := io.ReadAll(part)
						sawFile = strings.Contains(string(data), "BEGIN IONS")
					}
				}
				if !sawFile {
					t.Error("expected FILE part with MGF content")
				}

				w.WriteHeader(http.StatusOK)
				fmt.Fprintln(w, "<html><body><pre>")
				fmt.Fprintln(w, "  5%")
				w.(http.Flusher).Flush()
				fmt.Fprintln(w, "100%")
				fmt.Fprintln(w, `<A HREF="../cgi/master_results.pl?file=../data/20100601/F021799.dat">Click here</A>`)
				fmt.Fprintln(w, "</pre></body></html>")
			}))
			defer server.Close()

			srv := newTestService(t, server.URL, nil)
			body := testBody(t)
			sent := 0
			body.Sent = func() { sent++ }
			obs := &recordingObserver{}

			desc, err := srv.Submit(context.Background(), body, obs)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if desc.DateDir != "20100601" || desc.JobFile != "F021799.dat" {
				t.Errorf("unexpected descriptor %+v", desc)
			}
			if !reflect.DeepEqual(obs.progress, []int{5, 100}) {
				t.Errorf("unexpected progress %v", obs.progress)
			}
			if sent != 1 {
				t.Errorf("expected Sent to run once, ran %d times", sent)
			}
		})

		t.Run("Non-2xx Status", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer server.Close()

			srv := newTestService(t, server.URL, nil)
			body := testBody(t)
			sent := false
			body.Sent = func() { sent = true }

			_, err := srv.Submit(context.Background(), body, nil)
			if !errors.Is(err, shared.ErrTransport) {
				t.Errorf("expected ErrTransport, got %v", err)
			}
			if !sent {
				t.Error("expected Sent to run")
			}
		})

		t.Run("Connection Failure", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
			srv := newTestService(t, "http://mascot.invalid", client)
			body := testBody(t)
			sent := false
			body.Sent = func() { sent = true }

			_, err := srv.Submit(context.Background(), body, nil)
			if !errors.Is(err, shared.ErrTransport) {
				t.Errorf("expected ErrTransport, got %v", err)
			}
			if !sent {
				t.Error("expected Sent to run even when the request fails")
			}
		})

		t.Run("No Result Location", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintln(w, "<html>Sorry, your search could not be performed</html>")
			}))
			defer server.Close()

			_, err := newTestService(t, server.URL, nil).Submit(context.Background(), testBody(t), nil)
			if !errors.Is(err, shared.ErrProtocol) {
				t.Errorf("expected ErrProtocol, got %v", err)
			}
		})

		t.Run("Canceled Observer", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintln(w, "10%")
				fmt.Fprintln(w, `<a href="../data/20200101/F1.dat">`)
			}))
			defer server.Close()

			_, err := newTestService(t, server.URL, nil).Submit(context.Background(), testBody(t), cancelledObserver{})
			if !errors.Is(err, shared.ErrCanceled) {
				t.Errorf("expected ErrCanceled, got %v", err)
			}
		})
	})

	t.Run("FetchResults", func(t *testing.T) {
		desc := &SubmissionDescriptor{DateDir: "20100601", JobFile: "F021799.dat"}

		t.Run("Downloads And Parses", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Path != "/mascot/x-cgi/ms-status.exe" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				want := "Autorefresh=false&Show=RESULTFILE&DateDir=20100601&ResJob=F021799.dat"
				if r.URL.RawQuery != want {
					t.Errorf("expected query %s, got %s", want, r.URL.RawQuery)
				}
				io.WriteString(w, datFixture)
			}))
			defer server.Close()

			rs, err := newTestService(t, server.URL, nil).FetchResults(context.Background(), desc)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if rs.QueryCount() != 3 {
				t.Errorf("expected 3 queries, got %d", rs.QueryCount())
			}
		})

		t.Run("Non-2xx Status", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			}))
			defer server.Close()

			_, err := newTestService(t, server.URL, nil).FetchResults(context.Background(), desc)
			if !errors.Is(err, shared.ErrTransport) {
				t.Errorf("expected ErrTransport, got %v", err)
			}
		})

		t.Run("Unparseable Result File", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "<html>not a dat file</html>")
			}))
			defer server.Close()

			_, err := newTestService(t, server.URL, nil).FetchResults(context.Background(), desc)
			if !errors.Is(err, shared.ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
		})

		t.Run("Body Read Failure", func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
			client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}

			_, err := newTestService(t, "http://mascot.invalid", client).FetchResults(context.Background(), desc)
			if !errors.Is(err, shared.ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
		})

		t.Run("Custom Parser", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "anything")
			}))
			defer server.Close()

			cfg := shared.MascotConfig{InstallURL: server.URL + "/", SubmitPath: "cgi/nph-mascot.exe?1"}
			srv, err := NewMascotService(cfg, nil, failingParser{}, shared.NewLogger(io.Discard))
			if err != nil {
				t.Fatalf("NewMascotService failed: %v", err)
			}
			_, err = srv.FetchResults(context.Background(), desc)
			if !errors.Is(err, shared.ErrParse) {
				t.Errorf("expected plain parser errors to become ErrParse, got %v", err)
			}
		})
	})

	t.Run("ResultPageURL", func(t *testing.T) {
		srv := newTestService(t, "http://mascot.example.org", nil)
		got := srv.ResultPageURL(&SubmissionDescriptor{DateDir: "20100601", JobFile: "F021799.dat"})
		want := "http://mascot.example.org/mascot/cgi/master_results.pl?file=../data/20100601/F021799.dat"
		if got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	})
}

type failingParser struct{}

func (failingParser) Parse(io.Reader) (ResultSet, error) { return nil, errors.New("unexpected token") }
