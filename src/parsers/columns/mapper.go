// Package columns resolves arbitrary tabular headers to canonical transaction fields.
package columns

import (
	"strings"
)

type Field string

const (
	Date         Field = "date"
	Description  Field = "description"
	Amount       Field = "amount"
	Direction    Field = "direction"
	Category     Field = "category"
	Counterparty Field = "counterparty"
	Reference    Field = "reference"
	Withdrawal   Field = "withdrawal"
	Deposit      Field = "deposit"
)

// Fields is the order in which fields claim columns.
var Fields = []Field{Date, Description, Amount, Direction, Category, Counterparty, Reference, Withdrawal, Deposit}

// sharedFields may take a column already claimed by an earlier field when none of
// their aliases matches a free column. A Tally day book's Particulars is both the
// description and the ledger party.
var sharedFields = map[Field]bool{Counterparty: true}

// Aliases maps each field to header names in priority order.
type Aliases map[Field][]string

// Mapping maps a field to a column index.
type Mapping map[Field]int

func (m Mapping) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// Value returns the trimmed cell for f, or "" when f is unmapped or the row is short.
func (m Mapping) Value(row []string, f Field) string {
	idx, ok := m[f]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Mapper is immutable after construction and safe for concurrent use.
type Mapper struct {
	aliases Aliases
}

func NewMapper(aliases Aliases) *Mapper {
	copied := make(Aliases, len(aliases))
	for f, names := range aliases {
		normalized := make([]string, 0, len(names))
		for _, n := range names {
			normalized = append(normalized, NormalizeHeader(n))
		}
		copied[f] = normalized
	}
	return &Mapper{aliases: copied}
}

// Map resolves headers. For each field, the first alias present among the headers wins;
// a column claimed by an earlier field is not reused unless the field is shared.
func (m *Mapper) Map(headers []string) Mapping {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		n := NormalizeHeader(h)
		if n == "" {
			continue
		}
		if _, dup := index[n]; !dup {
			index[n] = i
		}
	}

	mapping := make(Mapping)
	claimed := make(map[int]bool)
	for _, f := range Fields {
		for _, alias := range m.aliases[f] {
			if idx, ok := index[alias]; ok && !claimed[idx] {
				mapping[f] = idx
				claimed[idx] = true
				break
			}
		}
		if mapping.Has(f) || !sharedFields[f] {
			continue
		}
		for _, alias := range m.aliases[f] {
			if idx, ok := index[alias]; ok {
				mapping[f] = idx
				break
			}
		}
	}
	return mapping
}

// NormalizeHeader lower-cases, trims and collapses inner whitespace.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.Join(strings.Fields(strings.ToLower(h)), " ")
}

// BankStatementAliases covers bank-exported CSV and spreadsheet statements.
func BankStatementAliases() Aliases {
	return Aliases{
		Date:         {"date", "txn date", "transaction date", "posting date", "value date", "tran date"},
		Description:  {"description", "particulars", "narration", "details", "memo", "remarks"},
		Amount:       {"amount", "txn amount", "transaction amount", "value", "sum"},
		Direction:    {"type", "dr/cr", "cr/dr", "debit/credit", "transaction type"},
		Category:     {"category", "expense category", "txn category"},
		Counterparty: {"counterparty", "party", "beneficiary", "sender", "payer", "ledger"},
		Reference:    {"reference", "ref", "ref no", "ref no.", "voucher no", "cheque no", "chq no", "chq./ref.no.", "utr"},
		Withdrawal:   {"withdrawal", "withdrawal amt", "withdrawal amount", "withdrawals", "debit", "debit amount", "dr amount"},
		Deposit:      {"deposit", "deposit amt", "deposit amount", "deposits", "credit", "credit amount", "cr amount"},
	}
}

// TallyAliases covers Tally day book and ledger exports.
func TallyAliases() Aliases {
	return Aliases{
		Date:         {"date", "voucher date", "transaction date"},
		Description:  {"narration", "particulars", "description"},
		Amount:       {"amount", "value"},
		Direction:    {"voucher type", "vch type", "type", "dr/cr"},
		Category:     {"group", "ledger group", "category"},
		Counterparty: {"ledger", "ledger name", "party", "party name", "particulars"},
		Reference:    {"voucher no", "voucher no.", "vch no.", "vch no", "reference"},
		Withdrawal:   {"debit", "debit amount", "dr"},
		Deposit:      {"credit", "credit amount", "cr"},
	}
}

// ZohoAliases covers Zoho Books transaction exports.
func ZohoAliases() Aliases {
	return Aliases{
		Date:         {"date", "transaction date"},
		Description:  {"description", "notes", "particulars"},
		Amount:       {"amount", "total", "bcy total"},
		Direction:    {"transaction type", "type", "debit/credit"},
		Category:     {"account", "account name", "category"},
		Counterparty: {"customer name", "vendor name", "contact name", "party", "payee"},
		Reference:    {"reference number", "reference#", "reference", "invoice number", "bill number", "transaction number"},
		Withdrawal:   {"debit", "withdrawal"},
		Deposit:      {"credit", "deposit"},
	}
}
