package services

import (
	"io"

	"github.com/desertthunder/mzsearch/internal/models"
)

// SubmissionDescriptor locates a search's result file on the Mascot server.
type SubmissionDescriptor struct {
	DateDir string `json:"date_dir"`
	JobFile string `json:"job_file"`
}

// Path returns the server-relative location, "data/<date>/<job>".
func (d SubmissionDescriptor) Path() string {
	return "data/" + d.DateDir + "/" + d.JobFile
}

// ResultSet is a parsed result file. Query numbers are 1-based.
type ResultSet interface {
	// QueryCount returns the number of submitted spectra.
	QueryCount() int

	// PeptideHit returns the top-ranked peptide for query q, if any.
	PeptideHit(q int) (*models.PeptideHit, bool)

	// QueryTitle returns the TITLE that was submitted for query q.
	QueryTitle(q int) string
}

// ResultParser turns a result file stream into a [ResultSet].
type ResultParser interface {
	Parse(r io.Reader) (ResultSet, error)
}

// ResponseObserver receives progress while a submission response streams in.
type ResponseObserver interface {
	// Progress reports a percentage (0..100) seen in the response.
	Progress(percent int)

	// Canceled is consulted before every response line is read.
	Canceled() bool
}
