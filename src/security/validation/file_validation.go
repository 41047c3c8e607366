package validation

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/username/smepulse/backend/src/logger"
	"github.com/username/smepulse/backend/src/models"
)

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// sniffLen is how many leading bytes are inspected.
const sniffLen = 1024

// isBinaryContent reports null bytes or invalid UTF-8 in buf.
func isBinaryContent(buf []byte) bool {
	if bytes.IndexByte(buf, 0) != -1 {
		return true
	}
	// a multi-byte rune may be cut at the sniff boundary
	for i := 0; i < utf8.UTFMax && len(buf) > 0; i++ {
		if utf8.Valid(buf) {
			return false
		}
		buf = buf[:len(buf)-1]
	}
	return !utf8.Valid(buf)
}

// ValidateFileContent checks that content plausibly matches the declared format and
// returns the detected content type.
func ValidateFileContent(content []byte, format models.FileFormat) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("%w: file is empty", ErrValidationFailed)
	}
	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}

	detected := strings.ToLower(strings.Split(http.DetectContentType(head), ";")[0])

	switch format {
	case models.FormatSpreadsheet:
		if !bytes.HasPrefix(head, zipMagic) {
			logger.L.Warn("Spreadsheet upload rejected: not an xlsx container", "detectedContentType", detected)
			return detected, fmt.Errorf("%w: spreadsheet must be an .xlsx workbook", ErrValidationFailed)
		}
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	case models.FormatLayout:
		if bytes.HasPrefix(head, pdfMagic) {
			return "application/pdf", nil
		}
		fallthrough
	case models.FormatDelimited, models.FormatStructured, models.FormatText:
		if isBinaryContent(head) {
			logger.L.Warn("Upload rejected: binary content in text format", "format", format, "detectedContentType", detected)
			return "application/octet-stream", fmt.Errorf("%w: file appears to be binary, not %s text", ErrValidationFailed, format)
		}
		return detected, nil
	default:
		return detected, fmt.Errorf("%w: unknown file format %q", ErrValidationFailed, format)
	}
}
