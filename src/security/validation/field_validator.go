package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/username/smepulse/backend/src/models"
)

var ErrValidationFailed = errors.New("validation failed")

const (
	MaxCompanyNameLength  = 255
	MaxFilenameLength     = 255
	MaxDescriptionLength  = 1024
	MaxShortFieldLength   = 255
	MinWindowDays         = 30
	MaxWindowDays         = 365
	MinHistoryLimit       = 1
	MaxHistoryLimit       = 50
	MaxTransactionPageLen = 500
)

var gstinRegex = regexp.MustCompile(`^\d{2}[A-Z]{5}\d{4}[A-Z][A-Z\d]Z[A-Z\d]$`)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks the UTF-8 character count of s.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateIntRange checks min <= v <= max.
func ValidateIntRange(v, min, max int, fieldName string) error {
	if v < min || v > max {
		return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrValidationFailed, fieldName, min, max, v)
	}
	return nil
}

// ValidateGSTIN accepts an empty value or a well-formed 15 character GSTIN.
func ValidateGSTIN(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if !gstinRegex.MatchString(s) {
		return fmt.Errorf("%w: GSTIN ('%s') is not in the expected format", ErrValidationFailed, s)
	}
	return nil
}

func ValidateDocumentKind(s string) (models.DocumentKind, error) {
	k := models.DocumentKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range models.DocumentKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown document kind '%s'", ErrValidationFailed, s)
}

func ValidateFileFormat(s string) (models.FileFormat, error) {
	f := models.FileFormat(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range models.FileFormats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown file format '%s'", ErrValidationFailed, s)
}

// ValidateIndustry maps an empty value to "other".
func ValidateIndustry(s string) (models.Industry, error) {
	in := models.Industry(strings.ToLower(strings.TrimSpace(s)))
	if in == "" {
		return models.IndustryOther, nil
	}
	for _, known := range models.Industries {
		if in == known {
			return in, nil
		}
	}
	return "", fmt.Errorf("%w: unknown industry '%s'", ErrValidationFailed, s)
}

func ValidateSeverity(s string) (models.Severity, error) {
	sev := models.Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev == "" {
		return "", nil
	}
	for _, known := range models.Severities {
		if sev == known {
			return sev, nil
		}
	}
	return "", fmt.Errorf("%w: unknown severity '%s'", ErrValidationFailed, s)
}
