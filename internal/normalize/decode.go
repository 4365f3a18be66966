package normalize

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"energyboard/internal/config"
)

// Frame is a decoded tabular export before any typing
type Frame struct {
	Header []string
	Rows   [][]string
	// SerialDates marks spreadsheets whose time cells are Excel serial numbers
	SerialDates bool
}

// Column returns the position of a header name, -1 if absent
func (f *Frame) Column(name string) int {
	for i, h := range f.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed cell or "" for short rows
func (f *Frame) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// Decode turns a raw export into a Frame according to its kind
func Decode(kind config.SourceKind, data []byte) (*Frame, error) {
	switch kind {
	case config.KindCSV:
		return DecodeCSV(data)
	case config.KindXLSX:
		return DecodeXLSX(data)
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}

// DecodeCSV parses a CSV export. Bytes that are not valid UTF-8 are read as Windows-1252.
func DecodeCSV(data []byte) (*Frame, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("transcoding csv: %w", err)
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &Frame{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	f := &Frame{Header: normalizeHeader(header)}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		f.Rows = append(f.Rows, record)
	}
	return f, nil
}

// DecodeXLSX reads the first sheet of a workbook with raw cell values
func DecodeXLSX(data []byte) (*Frame, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return &Frame{SerialDates: true}, nil
	}

	rows, err := wb.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}

	f := &Frame{SerialDates: true}
	for i, row := range rows {
		if i == 0 {
			f.Header = normalizeHeader(row)
			continue
		}
		if isBlank(row) {
			continue
		}
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
