package ingest

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	mimeCSV  = "text/csv"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS  = "application/vnd.ms-excel"
)

// Classify resolves the kind of an upload: declared MIME type first, then file
// extension, then content sniffing when the declared type is missing or generic.
func Classify(f UploadedFile) Kind {
	declared := normaliseMIME(f.Type)
	if declared == "" || declared == "application/octet-stream" {
		if len(f.Data) > 0 {
			declared = normaliseMIME(mimetype.Detect(f.Data).String())
		}
	}
	return classify(f.Name, declared)
}

func classify(name, mimeType string) Kind {
	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case ext == ".csv" || mimeType == mimeCSV:
		return KindCSV
	case ext == ".xlsx" || ext == ".xls" || mimeType == mimeXLSX || mimeType == mimeXLS:
		return KindSpreadsheet
	default:
		return KindUnrecognized
	}
}

// normaliseMIME drops parameters such as "; charset=utf-8".
func normaliseMIME(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.ToLower(strings.TrimSpace(t))
}
