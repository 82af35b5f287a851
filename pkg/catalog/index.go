package catalog

import (
	"strings"

	"tokinarc-sales-be/pkg/utils"
)

// Index is the read-only, request-scoped view of the catalog.
type Index struct {
	records []Record
	bySKU   map[string]int
}

// NewIndex keeps the first record per SKU, in input order.
func NewIndex(records []Record) *Index {
	idx := &Index{bySKU: make(map[string]int, len(records))}
	for _, r := range records {
		if r.SKU != "" {
			if _, dup := idx.bySKU[r.SKU]; dup {
				continue
			}
			idx.bySKU[r.SKU] = len(idx.records)
		}
		idx.records = append(idx.records, r)
	}
	return idx
}

// List returns a copy of every record.
func (i *Index) List() []Record {
	out := make([]Record, len(i.records))
	copy(out, i.records)
	return out
}

func (i *Index) Len() int {
	return len(i.records)
}

// Record fetches a record by its Tokin SKU.
func (i *Index) Record(sku string) (Record, bool) {
	pos, ok := i.bySKU[sku]
	if !ok {
		return Record{}, false
	}
	return i.records[pos], true
}

func (i *Index) Has(sku string) bool {
	_, ok := i.bySKU[sku]
	return ok
}

// Lookup resolves a Tokin SKU, a P part number or a D part number (U...)
// to the records that carry exactly that code. It never returns a
// near miss.
func (i *Index) Lookup(code string) []Record {
	clean := strings.ToUpper(strings.Join(strings.Fields(code), ""))
	if clean == "" {
		return nil
	}

	var out []Record
	switch {
	case strings.HasPrefix(clean, "U"):
		for _, r := range i.records {
			if strings.EqualFold(r.DCode, clean) {
				out = append(out, r)
			}
		}
	case strings.HasPrefix(clean, "P"):
		for _, r := range i.records {
			if strings.EqualFold(r.PCode, clean) {
				out = append(out, r)
			}
		}
	default:
		digits := utils.ExtractDigits(clean)
		if len(digits) < 5 || len(digits) > 6 {
			return nil
		}
		if r, ok := i.Record(digits); ok {
			return []Record{r}
		}
		for _, r := range i.records {
			if r.PCode != "" && utils.ExtractDigits(r.PCode) == digits {
				out = append(out, r)
			}
		}
	}
	return out
}

// Compatible reports whether candidate can be offered alongside anchor.
// Explicit compatibility refs on either record decide when present;
// otherwise the line attributes both records define must agree.
func (i *Index) Compatible(anchor, candidate Record) bool {
	if anchor.SKU != "" && anchor.SKU == candidate.SKU {
		return false
	}
	if len(anchor.CompatibleWith) > 0 || len(candidate.CompatibleWith) > 0 {
		return anchor.ListsCompatible(candidate.SKU) || candidate.ListsCompatible(anchor.SKU)
	}
	return agree(string(anchor.Amp), string(candidate.Amp)) &&
		agree(string(anchor.System), string(candidate.System)) &&
		agree(string(anchor.HandRobot), string(candidate.HandRobot))
}

func agree(a, b string) bool {
	return a == "" || b == "" || a == b
}
