package parsers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/username/smepulse/backend/src/models"
	"github.com/username/smepulse/backend/src/parsers/bankstatement"
	"github.com/username/smepulse/backend/src/parsers/columns"
	"github.com/username/smepulse/backend/src/parsers/tabular"
	"github.com/username/smepulse/backend/src/parsers/taxreturn"
)

var ErrUnsupportedFormat = errors.New("unsupported document kind/format combination")

// Extractor turns raw document content into candidate transactions and metadata.
// Row-level problems are reported in the result; a returned error fails the document.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader) (*models.ExtractionResult, error)
}

type key struct {
	kind   models.DocumentKind
	format models.FileFormat
}

// Registry maps (kind, format) to an extractor. It is not safe to Register
// concurrently with Lookup; build it once at startup.
type Registry struct {
	extractors map[key]Extractor
}

func NewRegistry() *Registry {
	return &Registry{extractors: make(map[key]Extractor)}
}

func (r *Registry) Register(kind models.DocumentKind, format models.FileFormat, e Extractor) {
	r.extractors[key{kind, format}] = e
}

// Lookup returns the extractor for kind and format, or ErrUnsupportedFormat.
func (r *Registry) Lookup(kind models.DocumentKind, format models.FileFormat) (Extractor, error) {
	e, ok := r.extractors[key{kind, format}]
	if !ok {
		return nil, fmt.Errorf("%w: kind=%s format=%s", ErrUnsupportedFormat, kind, format)
	}
	return e, nil
}

func (r *Registry) Supports(kind models.DocumentKind, format models.FileFormat) bool {
	_, ok := r.extractors[key{kind, format}]
	return ok
}

// Formats lists the formats registered for kind.
func (r *Registry) Formats(kind models.DocumentKind) []models.FileFormat {
	var out []models.FileFormat
	for k := range r.extractors {
		if k.kind == kind {
			out = append(out, k.format)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NewDefaultRegistry wires every built-in extractor.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(models.KindBankStatement, models.FormatLayout, bankstatement.NewExtractor(bankstatement.DefaultHeaderPatterns()))
	r.Register(models.KindBankStatement, models.FormatDelimited, tabular.NewDelimitedExtractor("bank_statement", columns.BankStatementAliases()))
	r.Register(models.KindBankStatement, models.FormatSpreadsheet, tabular.NewSpreadsheetExtractor("bank_statement", columns.BankStatementAliases()))

	r.Register(models.KindTallyExport, models.FormatDelimited, tabular.NewDelimitedExtractor("tally_export", columns.TallyAliases()))
	r.Register(models.KindTallyExport, models.FormatSpreadsheet, tabular.NewSpreadsheetExtractor("tally_export", columns.TallyAliases()))
	r.Register(models.KindZohoExport, models.FormatDelimited, tabular.NewDelimitedExtractor("zoho_export", columns.ZohoAliases()))
	r.Register(models.KindZohoExport, models.FormatSpreadsheet, tabular.NewSpreadsheetExtractor("zoho_export", columns.ZohoAliases()))

	r.Register(models.KindGSTReturn, models.FormatStructured, taxreturn.NewStructuredExtractor())
	r.Register(models.KindGSTReturn, models.FormatSpreadsheet, taxreturn.NewSpreadsheetExtractor())
	r.Register(models.KindGSTReturn, models.FormatDelimited, taxreturn.NewDelimitedExtractor())
	r.Register(models.KindGSTReturn, models.FormatLayout, taxreturn.NewTextExtractor())
	r.Register(models.KindGSTReturn, models.FormatText, taxreturn.NewTextExtractor())

	return r
}

// SkipError folds the skipped rows of res into one error, or nil when none were skipped.
func SkipError(res *models.ExtractionResult) error {
	var merr *multierror.Error
	for _, s := range res.Skipped {
		merr = multierror.Append(merr, fmt.Errorf("row %d: %s", s.Row, s.Reason))
	}
	return merr.ErrorOrNil()
}
