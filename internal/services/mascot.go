package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mzsearch/internal/shared"
	"github.com/dustin/go-humanize"
)

// MascotService submits searches to a Mascot server and downloads their results.
type MascotService struct {
	installURL *url.URL
	submitURL  string
	httpClient *http.Client
	parser     ResultParser
	logger     *log.Logger
}

// NewMascotService creates a service for the Mascot installation described by cfg.
//
// A nil client gets the configured timeout; a nil parser defaults to [DatParser].
func NewMascotService(cfg shared.MascotConfig, client *http.Client, parser ResultParser, logger *log.Logger) (*MascotService, error) {
	installURL, err := cfg.ParsedInstallURL()
	if err != nil {
		return nil, err
	}
	submitURL, err := cfg.SubmitURL()
	if err != nil {
		return nil, err
	}

	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	if parser == nil {
		parser = DatParser{}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &MascotService{
		installURL: installURL,
		submitURL:  submitURL,
		httpClient: client,
		parser:     parser,
		logger:     logger,
	}, nil
}

// SubmitURL returns the endpoint searches are posted to.
func (m *MascotService) SubmitURL() string { return m.submitURL }

// Submit posts body and scrapes the streamed response for progress and the result location.
//
// body.Sent runs as soon as the request has been sent, whether or not it succeeded.
func (m *MascotService) Submit(ctx context.Context, body *SubmissionBody, observer ResponseObserver) (*SubmissionDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.submitURL, bytes.NewReader(body.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrConfiguration, err)
	}
	req.Header.Set("Content-Type", body.ContentType())
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	m.logger.Info("submitting search", "url", m.submitURL, "size", humanize.Bytes(uint64(body.Len())))

	resp, err := m.httpClient.Do(req)
	if body.Sent != nil {
		body.Sent()
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrCanceled, ctx.Err())
		}
		return nil, fmt.Errorf("%w: submission failed: %v", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: submission returned status %d", shared.ErrTransport, resp.StatusCode)
	}

	desc, err := NewResponseScanner(observer, m.logger).Scan(resp.Body)
	if err != nil && ctx.Err() != nil && errors.Is(err, shared.ErrTransport) {
		return nil, fmt.Errorf("%w: %v", shared.ErrCanceled, ctx.Err())
	}
	return desc, err
}

// ResultURL returns the ms-status.exe address that serves the raw result file.
func (m *MascotService) ResultURL(desc *SubmissionDescriptor) string {
	return m.installURL.String() + "x-cgi/ms-status.exe?Autorefresh=false&Show=RESULTFILE" +
		"&DateDir=" + url.QueryEscape(desc.DateDir) +
		"&ResJob=" + url.QueryEscape(desc.JobFile)
}

// ResultPageURL returns the human-readable report page for a search.
func (m *MascotService) ResultPageURL(desc *SubmissionDescriptor) string {
	return m.installURL.String() + "cgi/master_results.pl?file=../" + desc.Path()
}

// FetchResults downloads and parses the result file for desc.
func (m *MascotService) FetchResults(ctx context.Context, desc *SubmissionDescriptor) (ResultSet, error) {
	resultURL := m.ResultURL(desc)
	m.logger.Info("fetching results", "url", resultURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrConfiguration, err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: result request failed: %v", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: result request returned status %d", shared.ErrTransport, resp.StatusCode)
	}

	rs, err := m.parser.Parse(resp.Body)
	if err != nil {
		if errors.Is(err, shared.ErrParse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrParse, err)
	}

	m.logger.Info("results parsed", "queries", rs.QueryCount())
	return rs, nil
}
