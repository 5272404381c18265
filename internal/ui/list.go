package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/mzsearch/internal/formatter"
)

var (
	_ list.Item = identificationItem{}
)

// identificationItem wraps [formatter.IdentifiedRow] to implement [list.Item].
type identificationItem struct {
	row formatter.IdentifiedRow
}

func (i identificationItem) FilterValue() string { return i.row.Identification.Sequence }

func (i identificationItem) Title() string {
	seq := i.row.Identification.ModifiedSequence
	if seq == "" {
		seq = i.row.Identification.Sequence
	}
	return fmt.Sprintf("Row %d • %s", i.row.Row, seq)
}

func (i identificationItem) Description() string {
	ident := i.row.Identification
	desc := fmt.Sprintf("score %.1f • expect %s • m/z %.4f",
		ident.IonsScore, strconv.FormatFloat(ident.Expect, 'g', 4, 64), i.row.MZ)
	if len(ident.Proteins) > 0 {
		desc = fmt.Sprintf("%s • %s", desc, strings.Join(ident.Proteins, ";"))
	}
	return desc
}

func identificationItems(rows []formatter.IdentifiedRow) []list.Item {
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = identificationItem{row: r}
	}
	return items
}
