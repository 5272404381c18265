package services

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/desertthunder/mzsearch/internal/shared"
)

const datFixture = `MIME-Version: 1.0 (Generated by Mascot version 1.0)
Content-Type: multipart/mixed; boundary=gc0p4Jq0M2Yt08jU534c0p

--gc0p4Jq0M2Yt08jU534c0p
Content-Type: application/x-Mascot; name="parameters"

COM=mzsearch
DB=SwissProt

--gc0p4Jq0M2Yt08jU534c0p
Content-Type: application/x-Mascot; name="masses"

A=71.037114
delta1=15.994915,Oxidation (M)

--gc0p4Jq0M2Yt08jU534c0p
Content-Type: application/x-Mascot; name="header"

queries=3
version=2.3.0

--gc0p4Jq0M2Yt08jU534c0p
Content-Type: application/x-Mascot; name="summary"

qmatch1=120
qmatch3=40

--gc0p4Jq0M2Yt08jU534c0p
Content-Type: application/x-Mascot; name="peptides"

q1_p1=0,1162.623398,0.000040,12,LVNELTEFAK,18,000000000000,61.23,0001002000000000000,0,0;"ALBU_BOVIN":0:66:75:1
q1_p1_terms=K,T
q2_p1=-1
q3_p1=1,1478.722137,-0.0012,9,MLSGFGYHR,14,01000000000,44.50,0002000000000000000,0,0;"ALBU_BOVIN":0:1:9:1,"ALBU_HUMAN":0:1:9:1
q3_p1_terms=-,L

--gc0p4Jq0M2Yt08jU534c0p
Content-Type: application/x-Mascot; name="query1"

title=RowIdx%200%20%28scan%3d10%20rt%3d12%2e5%29
charge=2+

--gc0p4Jq0M2Yt08jU534c0p
Content-Type: application/x-Mascot; name="query2"

title=RowIdx%201%20%28scan%3d11%20rt%3d13%29

--gc0p4Jq0M2Yt08jU534c0p
Content-Type: application/x-Mascot; name="query3"

title=RowIdx%202%20%28scan%3d12%20rt%3d14%2e25%29

--gc0p4Jq0M2Yt08jU534c0p--
`

func TestDatParser(t *testing.T) {
	t.Run("parses queries, hits and titles", func(t *testing.T) {
		rs, err := DatParser{}.Parse(strings.NewReader(datFixture))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		if rs.QueryCount() != 3 {
			t.Fatalf("expected 3 queries, got %d", rs.QueryCount())
		}
		if got := rs.QueryTitle(1); got != "RowIdx 0 (scan=10 rt=12.5)" {
			t.Errorf("unexpected title for query 1: %q", got)
		}
		if got := rs.QueryTitle(3); got != "RowIdx 2 (scan=12 rt=14.25)" {
			t.Errorf("unexpected title for query 3: %q", got)
		}

		hit, ok := rs.PeptideHit(1)
		if !ok {
			t.Fatal("expected hit for query 1")
		}
		if hit.Sequence != "LVNELTEFAK" || hit.ModifiedSequence != "LVNELTEFAK" {
			t.Errorf("unexpected sequence: %+v", hit)
		}
		if hit.IonsScore != 61.23 || hit.CalcMass != 1162.623398 || hit.MissedCleavages != 0 {
			t.Errorf("unexpected hit values: %+v", hit)
		}
		if !reflect.DeepEqual(hit.Proteins, []string{"ALBU_BOVIN"}) {
			t.Errorf("unexpected proteins: %v", hit.Proteins)
		}
		if want := 120 * math.Pow(10, -6.123); math.Abs(hit.Expect-want) > 1e-12 {
			t.Errorf("expected expect %g, got %g", want, hit.Expect)
		}

		if _, ok := rs.PeptideHit(2); ok {
			t.Error("query 2 should have no hit")
		}

		hit, ok = rs.PeptideHit(3)
		if !ok {
			t.Fatal("expected hit for query 3")
		}
		if hit.ModifiedSequence != "M(Oxidation)LSGFGYHR" {
			t.Errorf("unexpected modified sequence %q", hit.ModifiedSequence)
		}
		if hit.Delta != -0.0012 || hit.MissedCleavages != 1 {
			t.Errorf("unexpected hit values: %+v", hit)
		}
		if !reflect.DeepEqual(hit.Proteins, []string{"ALBU_BOVIN", "ALBU_HUMAN"}) {
			t.Errorf("unexpected proteins: %v", hit.Proteins)
		}
	})

	t.Run("accepts CRLF line endings", func(t *testing.T) {
		crlf := strings.ReplaceAll(datFixture, "\n", "\r\n")
		rs, err := DatParser{}.Parse(strings.NewReader(crlf))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if hit, ok := rs.PeptideHit(1); !ok || hit.Sequence != "LVNELTEFAK" {
			t.Errorf("unexpected hit: %+v", hit)
		}
	})

	t.Run("rejects malformed files", func(t *testing.T) {
		tests := []struct {
			name string
			doc  string
		}{
			{name: "not multipart", doc: "Content-Type: text/html\n\n<html></html>"},
			{name: "empty", doc: ""},
			{
				name: "no header section",
				doc:  "Content-Type: multipart/mixed; boundary=XX\n\n--XX\nContent-Type: application/x-Mascot; name=\"peptides\"\n\nq1_p1=-1\n--XX--\n",
			},
			{
				name: "bad query count",
				doc:  "Content-Type: multipart/mixed; boundary=XX\n\n--XX\nContent-Type: application/x-Mascot; name=\"header\"\n\nqueries=many\n--XX--\n",
			},
			{
				name: "truncated peptide",
				doc: "Content-Type: multipart/mixed; boundary=XX\n\n" +
					"--XX\nContent-Type: application/x-Mascot; name=\"header\"\n\nqueries=1\n" +
					"--XX\nContent-Type: application/x-Mascot; name=\"peptides\"\n\nq1_p1=0,1000.1,0.1\n--XX--\n",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := DatParser{}.Parse(strings.NewReader(tt.doc))
				if !errors.Is(err, shared.ErrParse) {
					t.Errorf("expected ErrParse, got %v", err)
				}
			})
		}
	})
}

func TestModifiedSequence(t *testing.T) {
	mods := map[int]string{1: "Oxidation", 2: "Acetyl"}
	tests := []struct {
		name string
		seq  string
		mods string
		want string
	}{
		{name: "unmodified", seq: "PEPTIDE", mods: "000000000", want: "PEPTIDE"},
		{name: "residue", seq: "PEMTIDE", mods: "000100000", want: "PEM(Oxidation)TIDE"},
		{name: "n-terminus", seq: "PEPTIDE", mods: "200000000", want: "(Acetyl)PEPTIDE"},
		{name: "length mismatch", seq: "PEPTIDE", mods: "0001", want: "PEPTIDE"},
		{name: "unknown delta", seq: "PEPTIDE", mods: "000500000", want: "PEPTIDE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := modifiedSequence(tt.seq, tt.mods, mods); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
