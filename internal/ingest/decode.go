package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
)

var (
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
	htmlRegex = regexp.MustCompile(`(?i)<(html|!doctype)`)
	zipMagic  = []byte("PK\x03\x04")
)

// sniffLen is how much of a body is inspected for an HTML page.
const sniffLen = 512

// looksLikeHTML reports whether the head of data is an HTML document.
func looksLikeHTML(data []byte) bool {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return htmlRegex.Match(head)
}

// DecodeTable turns a CSV or spreadsheet upload into rows. Blank rows are
// dropped and ragged rows are padded with "" to the widest row.
func DecodeTable(kind Kind, f UploadedFile) ([][]string, error) {
	var (
		rows [][]string
		err  error
	)
	switch kind {
	case KindCSV:
		rows, err = decodeCSV(f.Data)
	case KindSpreadsheet:
		rows, err = decodeSpreadsheet(f)
	default:
		return nil, fmt.Errorf("%s is not tabular", kind)
	}
	if err != nil {
		return nil, err
	}
	return normaliseRows(rows), nil
}

func decodeCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if looksLikeHTML(data) {
		return nil, ErrHTMLResponse
	}

	// Korean league exports are commonly EUC-KR
	if !utf8.Valid(data) {
		decoded, err := korean.EUCKR.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode text: %w", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		for i, cell := range record {
			record[i] = strings.TrimSuffix(cell, "\r")
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func decodeSpreadsheet(f UploadedFile) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(f.Name))
	if ext == ".xlsx" || (ext != ".xls" && bytes.HasPrefix(f.Data, zipMagic)) {
		return decodeXLSX(f.Data)
	}
	return decodeXLS(f.Data)
}

// decodeXLSX reads the first sheet in workbook order.
func decodeXLSX(data []byte) ([][]string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// decodeXLS reads the first sheet of a legacy BIFF workbook.
func decodeXLS(data []byte) (rows [][]string, err error) {
	// extrame/xls panics on some malformed workbooks
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("failed to read workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// normaliseRows drops rows whose cells are all empty and pads the rest.
func normaliseRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	width := 0
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if len(row) > width {
			width = len(row)
		}
		out = append(out, row)
	}
	for i, row := range out {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			out[i] = padded
		}
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
