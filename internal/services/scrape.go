package services

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mzsearch/internal/shared"
	"golang.org/x/time/rate"
)

var (
	progressPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
	locationPattern = regexp.MustCompile(`(?i)<a\s+href="[^"]*data/([^/"]+)/([^/"]+)"`)
)

const (
	maxLineSize      = 1024 * 1024
	maxAnchorSamples = 20
)

// MatchProgress extracts a percentage from a response line.
//
// Only a whole numeral of at most three digits counts; fractions and values above 100 are
// not progress reports.
func MatchProgress(line string) (int, bool) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil || len(m[1]) > 3 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > 100 {
		return 0, false
	}
	return n, true
}

// MatchLocation extracts a result file location from an anchor in a response line.
func MatchLocation(line string) (*SubmissionDescriptor, bool) {
	matches := locationPattern.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return nil, false
	}
	m := matches[len(matches)-1]
	return &SubmissionDescriptor{DateDir: m[1], JobFile: m[2]}, true
}

// ResponseScanner reads a submission response line by line.
type ResponseScanner struct {
	observer ResponseObserver
	logger   *log.Logger
	logEvery rate.Sometimes

	descriptor *SubmissionDescriptor
	anchors    []string
	lines      int
}

// NewResponseScanner creates a [ResponseScanner]. A nil observer never cancels.
func NewResponseScanner(observer ResponseObserver, logger *log.Logger) *ResponseScanner {
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ResponseScanner{
		observer: observer,
		logger:   logger,
		logEvery: rate.Sometimes{First: 1, Interval: 2 * time.Second},
	}
}

// Scan consumes r until EOF and returns the last result location seen.
func (s *ResponseScanner) Scan(r io.Reader) (*SubmissionDescriptor, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for {
		if s.observer.Canceled() {
			return nil, shared.ErrCanceled
		}
		if !sc.Scan() {
			break
		}
		s.scanLine(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrTransport, err)
	}

	if s.descriptor == nil {
		s.logger.Error("response has no result location", "lines", s.lines, "anchors", strings.Join(s.anchors, "\n"))
		err := fmt.Errorf("%w: no result location in %d response lines", shared.ErrProtocol, s.lines)
		if len(s.anchors) > 0 {
			err = fmt.Errorf("%w; anchors seen: %s", err, strings.Join(s.anchors, " | "))
		}
		return nil, err
	}

	s.logger.Debug("result location found", "path", s.descriptor.Path())
	return s.descriptor, nil
}

func (s *ResponseScanner) scanLine(line string) {
	s.lines++

	if n, ok := MatchProgress(line); ok {
		s.observer.Progress(n)
		s.logEvery.Do(func() { s.logger.Info("search progress", "percent", n) })
	}

	if strings.Contains(strings.ToLower(line), "href") && len(s.anchors) < maxAnchorSamples {
		s.anchors = append(s.anchors, strings.TrimSpace(line))
	}

	if desc, ok := MatchLocation(line); ok {
		s.descriptor = desc
	}
}

type nopObserver struct{}

func (nopObserver) Progress(int)   {}
func (nopObserver) Canceled() bool { return false }
