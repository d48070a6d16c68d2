// Package ingest loads sanction registries and contract listings from CSV exports.
//
// Headers are normalized (trimmed, lower-cased, spaces to underscores) and mapped
// through alias tables, so both the Portal da Transparência exports and hand-made
// files with canonical column names load the same way.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrMissingColumns is returned when a required column is absent after aliasing
	ErrMissingColumns = errors.New("required columns missing")
	// ErrEmptyFile is returned when the file has no header row
	ErrEmptyFile = errors.New("csv file has no header")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// table is a header-indexed view over CSV rows
type table struct {
	columns map[string]int
	rows    [][]string
}

func (t *table) has(col string) bool {
	_, ok := t.columns[col]
	return ok
}

// get returns the trimmed cell for a column, empty when the column or cell is absent
func (t *table) get(row []string, col string) string {
	i, ok := t.columns[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// NormalizeHeader trims, lower-cases and replaces spaces with underscores
func NormalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

// openTable reads the whole file. Missing files surface as wrapped os.ErrNotExist.
func openTable(path, context string, aliases map[string]string, required []string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: open %s: %w", context, path, err)
	}
	defer f.Close()

	t, err := readTable(f, aliases)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", context, err)
	}

	var missing []string
	for _, col := range required {
		if !t.has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w: %s", context, ErrMissingColumns, strings.Join(missing, ", "))
	}
	return t, nil
}

func readTable(r io.Reader, aliases map[string]string) (*table, error) {
	br := bufio.NewReader(r)

	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	// Portal exports use ';' as separator
	firstLine, _ := br.Peek(4096)
	if i := bytes.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if bytes.Count(firstLine, []byte{';'}) > bytes.Count(firstLine, []byte{','}) {
		cr.Comma = ';'
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := NormalizeHeader(h)
		if canonical, ok := aliases[name]; ok {
			name = canonical
		}
		// first occurrence wins when two headers alias to the same column
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	return &table{columns: columns, rows: rows}, nil
}
