package services

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/desertthunder/mzsearch/internal/shared"
)

//go:embed submission.tmpl
var defaultSubmissionTemplate string

// SubmissionBody is a rendered multipart/form-data request body.
type SubmissionBody struct {
	Boundary string
	Data     []byte

	// Sent, if set, runs once after the request carrying the body has been sent.
	Sent func()
}

// ContentType returns the multipart header value for the body's boundary.
func (b *SubmissionBody) ContentType() string {
	return "multipart/form-data; boundary=" + b.Boundary
}

// Len returns the body size in bytes.
func (b *SubmissionBody) Len() int { return len(b.Data) }

// submissionForm is the data handed to the submission template.
type submissionForm struct {
	Boundary string
	Search   shared.SearchConfig
	FileName string
	MGF      string
}

// Field renders one form-data part.
func (f submissionForm) Field(name string, value any) string {
	return fmt.Sprintf("--%s\r\nContent-Disposition: form-data; name=%q\r\n\r\n%v\r\n", f.Boundary, name, value)
}

// File renders the MGF export as a file upload part.
func (f submissionForm) File(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--%s\r\n", f.Boundary)
	fmt.Fprintf(&b, "Content-Disposition: form-data; name=%q; filename=%q\r\n", name, f.FileName)
	b.WriteString("Content-Type: application/octet-stream\r\n\r\n")
	b.WriteString(f.MGF)
	b.WriteString("\r\n")
	return b.String()
}

// Close renders the closing boundary.
func (f submissionForm) Close() string {
	return "--" + f.Boundary + "--\r\n"
}

// ParseSubmissionTemplate loads the template at path, or the embedded default when path is empty.
func ParseSubmissionTemplate(path string) (*template.Template, error) {
	if path == "" {
		tmpl, err := template.New("submission").Parse(defaultSubmissionTemplate)
		if err != nil {
			return nil, fmt.Errorf("%w: embedded submission template: %v", shared.ErrConfiguration, err)
		}
		return tmpl, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read submission template: %v", shared.ErrConfiguration, err)
	}
	tmpl, err := template.New(filepath.Base(path)).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid submission template %s: %v", shared.ErrConfiguration, path, err)
	}
	return tmpl, nil
}

// BuildSubmission renders the submission body from the search parameters and the MGF export at
// exportPath. An empty boundary is replaced by a generated one.
func BuildSubmission(tmpl *template.Template, params shared.SearchConfig, exportPath, boundary string) (*SubmissionBody, error) {
	if tmpl == nil {
		var err error
		if tmpl, err = ParseSubmissionTemplate(""); err != nil {
			return nil, err
		}
	}
	if boundary == "" {
		boundary = shared.GenerateBoundary()
	}

	mgf, err := os.ReadFile(exportPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}
	if bytes.Contains(mgf, []byte("--"+boundary)) {
		return nil, fmt.Errorf("%w: boundary %q occurs in the export", shared.ErrConfiguration, boundary)
	}

	form := submissionForm{
		Boundary: boundary,
		Search:   params,
		FileName: filepath.Base(exportPath),
		MGF:      string(mgf),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, form); err != nil {
		return nil, fmt.Errorf("%w: failed to render submission: %v", shared.ErrConfiguration, err)
	}

	return &SubmissionBody{Boundary: boundary, Data: buf.Bytes()}, nil
}
