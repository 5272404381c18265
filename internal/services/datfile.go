package services

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/desertthunder/mzsearch/internal/models"
	"github.com/desertthunder/mzsearch/internal/shared"
)

var accessionPattern = regexp.MustCompile(`"([^"]+)"`)

// DatParser reads Mascot .dat result files.
//
// A .dat file is a MIME multipart document whose parts are named sections of key=value lines.
// The parser uses the header (query count), summary (candidate counts), masses (modification
// deltas), peptides (ranked matches) and query<i> (spectrum titles) sections.
type DatParser struct{}

// Parse reads a complete .dat document.
func (DatParser) Parse(r io.Reader) (ResultSet, error) {
	br := bufio.NewReader(r)
	header, err := textproto.NewReader(br).ReadMIMEHeader()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: invalid result file header: %v", shared.ErrParse, err)
	}

	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return nil, fmt.Errorf("%w: result file is not a multipart document", shared.ErrParse)
	}

	sections := map[string]map[string]string{}
	mr := multipart.NewReader(br, params["boundary"])
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read result section: %v", shared.ErrParse, err)
		}

		_, partParams, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil || partParams["name"] == "" {
			part.Close()
			continue
		}

		values, err := readSection(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read section %s: %v", shared.ErrParse, partParams["name"], err)
		}
		sections[partParams["name"]] = values
	}

	return newDatFile(sections)
}

func readSection(r io.Reader) (map[string]string, error) {
	values := map[string]string{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" {
			continue
		}
		values[key] = value
	}
	return values, sc.Err()
}

// DatFile is the parsed content of a .dat result file.
type DatFile struct {
	queries int
	hits    map[int]*models.PeptideHit
	titles  map[int]string
}

func newDatFile(sections map[string]map[string]string) (*DatFile, error) {
	header, ok := sections["header"]
	if !ok {
		return nil, fmt.Errorf("%w: result file has no header section", shared.ErrParse)
	}
	queries, err := strconv.Atoi(strings.TrimSpace(header["queries"]))
	if err != nil || queries < 0 {
		return nil, fmt.Errorf("%w: invalid query count %q", shared.ErrParse, header["queries"])
	}

	d := &DatFile{
		queries: queries,
		hits:    map[int]*models.PeptideHit{},
		titles:  map[int]string{},
	}

	mods := parseModDeltas(sections["masses"])
	peptides := sections["peptides"]
	summary := sections["summary"]
	for q := 1; q <= queries; q++ {
		if query, ok := sections["query"+strconv.Itoa(q)]; ok {
			d.titles[q] = decodeTitle(query["title"])
		}

		raw, ok := peptides[fmt.Sprintf("q%d_p1", q)]
		if !ok || raw == "-1" || raw == "" {
			continue
		}
		hit, err := parsePeptideHit(raw, mods)
		if err != nil {
			return nil, fmt.Errorf("%w: query %d: %v", shared.ErrParse, q, err)
		}
		hit.Expect = expectValue(hit.IonsScore, summary[fmt.Sprintf("qmatch%d", q)])
		d.hits[q] = hit
	}

	return d, nil
}

// QueryCount returns the number of queries in the file.
func (d *DatFile) QueryCount() int { return d.queries }

// PeptideHit returns the rank 1 peptide for query q.
func (d *DatFile) PeptideHit(q int) (*models.PeptideHit, bool) {
	hit, ok := d.hits[q]
	return hit, ok
}

// QueryTitle returns the decoded title of query q.
func (d *DatFile) QueryTitle(q int) string { return d.titles[q] }

func decodeTitle(raw string) string {
	title, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return title
}

// parsePeptideHit reads a q<i>_p1 value:
//
//	missed,mr,delta,ions,sequence,peaks,mods,score,series,peaks2,peaks3;"ACC":frame:start:end:multiplicity,...
func parsePeptideHit(raw string, mods map[int]string) (*models.PeptideHit, error) {
	match, proteins, _ := strings.Cut(raw, ";")
	fields := strings.Split(match, ",")
	if len(fields) < 8 {
		return nil, fmt.Errorf("peptide match has %d fields", len(fields))
	}

	missed, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("missed cleavages %q: %v", fields[0], err)
	}
	mass, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, fmt.Errorf("peptide mass %q: %v", fields[1], err)
	}
	delta, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil, fmt.Errorf("mass delta %q: %v", fields[2], err)
	}
	score, err := strconv.ParseFloat(fields[7], 64)
	if err != nil {
		return nil, fmt.Errorf("ions score %q: %v", fields[7], err)
	}

	hit := &models.PeptideHit{
		Sequence:        fields[4],
		IonsScore:       score,
		CalcMass:        mass,
		Delta:           delta,
		MissedCleavages: missed,
	}
	hit.ModifiedSequence = modifiedSequence(hit.Sequence, fields[6], mods)

	for _, m := range accessionPattern.FindAllStringSubmatch(proteins, -1) {
		hit.Proteins = append(hit.Proteins, m[1])
	}
	return hit, nil
}

// parseModDeltas reads delta<n>=mass,Name entries.
func parseModDeltas(masses map[string]string) map[int]string {
	mods := map[int]string{}
	for key, value := range masses {
		n, ok := strings.CutPrefix(key, "delta")
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(n)
		if err != nil {
			continue
		}
		_, name, ok := strings.Cut(value, ",")
		if !ok {
			continue
		}
		if short, _, found := strings.Cut(name, " ("); found {
			name = short
		}
		mods[idx] = name
	}
	return mods
}

// modifiedSequence annotates residues using the mod string, which has one digit per residue
// plus one for each terminus.
func modifiedSequence(seq, modString string, mods map[int]string) string {
	if len(modString) != len(seq)+2 || strings.Trim(modString, "0") == "" {
		return seq
	}

	var b strings.Builder
	annotate := func(c byte) {
		if c < '1' || c > '9' {
			return
		}
		if name, ok := mods[int(c-'0')]; ok {
			b.WriteString("(" + name + ")")
		}
	}

	annotate(modString[0])
	for i := 0; i < len(seq); i++ {
		b.WriteByte(seq[i])
		annotate(modString[i+1])
	}
	annotate(modString[len(modString)-1])
	return b.String()
}

// expectValue converts an ions score to an expectation value given the number of candidate
// peptides; a missing count is treated as one.
func expectValue(score float64, qmatch string) float64 {
	candidates, err := strconv.ParseFloat(qmatch, 64)
	if err != nil || candidates < 1 {
		candidates = 1
	}
	return candidates * math.Pow(10, -score/10)
}
