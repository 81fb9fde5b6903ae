// Package card parses fleet card statements: fuel card and toll exports in
// the semicolon separated layout Portuguese issuers use.
package card

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	enc "github.com/MrJamesThe3rd/haulbook/internal/encoding"
)

var dateLayouts = []string{
	"02-01-2006 15:04",
	"02/01/2006 15:04",
	"02-01-2006",
	"02/01/2006",
	time.DateOnly,
}

// Line is one charge.
type Line struct {
	Date        time.Time
	Amount      int64
	Description string
	PlateNumber string
}

type Statement struct {
	Profile string
	Kind    Kind
	Lines   []Line
}

// Parser auto-detects the issuer layout from the header row. A parser built
// with kinds only considers profiles of those kinds.
type Parser struct {
	profiles []Profile
}

func NewParser(kinds ...Kind) *Parser {
	if len(kinds) == 0 {
		return &Parser{profiles: profiles}
	}

	var ps []Profile

	for _, p := range profiles {
		for _, k := range kinds {
			if p.Kind == k {
				ps = append(ps, p)
			}
		}
	}

	return &Parser{profiles: ps}
}

func (p *Parser) Parse(r io.Reader) (*Statement, error) {
	utf8r, charset, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detecting encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	profile, cols, headerIdx := p.detectProfile(rows)
	if profile == nil {
		return nil, fmt.Errorf("no known card statement layout found")
	}

	slog.Debug("parsing card statement", "profile", profile.Name, "charset", charset)

	lines, err := parseRows(profile, cols, rows[headerIdx+1:], headerIdx)
	if err != nil {
		return nil, err
	}

	return &Statement{Profile: profile.Name, Kind: profile.Kind, Lines: lines}, nil
}

type colIndex map[string]int

func (p *Parser) detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			if name := strings.TrimSpace(cell); name != "" {
				cols[name] = i
			}
		}

		for i := range p.profiles {
			if matchesProfile(&p.profiles[i], cols) {
				return &p.profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows skips rows without a date (totals, footers) and rows without a
// charge. headerIdx is the 0-based header row, used for 1-based row numbers
// in errors.
func parseRows(p *Profile, cols colIndex, rows [][]string, headerIdx int) ([]Line, error) {
	var lines []Line

	for i, row := range rows {
		rowNum := headerIdx + i + 2

		date, ok := parseDate(cellValue(row, cols[p.DateCol]))
		if !ok {
			continue
		}

		amount, ok, err := chargeAmount(p, cols, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		if !ok {
			continue
		}

		desc := description(p, cols, row)
		if desc == "" {
			return nil, fmt.Errorf("row %d: missing description", rowNum)
		}

		lines = append(lines, Line{
			Date:        date,
			Amount:      amount,
			Description: desc,
			PlateNumber: cellValue(row, cols[p.PlateCol]),
		})
	}

	return lines, nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func chargeAmount(p *Profile, cols colIndex, row []string) (int64, bool, error) {
	col := p.AmountCol
	if p.AmountMode == amountSplit {
		col = p.DebitCol
	}

	s := cellValue(row, cols[col])
	if s == "" {
		return 0, false, nil
	}

	cents, err := parseAmount(s)
	if err != nil {
		return 0, false, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	if cents < 0 {
		cents = -cents
	}

	return cents, cents != 0, nil
}

func description(p *Profile, cols colIndex, row []string) string {
	parts := make([]string, 0, len(p.DescCols))

	for _, c := range p.DescCols {
		if v := cellValue(row, cols[c]); v != "" {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, " - ")
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
