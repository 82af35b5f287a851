package state

import (
	"regexp"
	"strconv"
	"strings"

	"tokinarc-sales-be/pkg/catalog"
)

// Extracted holds every slot value and cue found in one normalized message.
type Extracted struct {
	Codes      []string           `json:"codes,omitempty"`
	Categories []catalog.Category `json:"categories,omitempty"`
	Mentions   []catalog.Mention  `json:"-"`
	Amp        catalog.Amp        `json:"amp,omitempty"`
	System     catalog.System     `json:"system,omitempty"`
	HandRobot  catalog.HandRobot  `json:"hand_robot,omitempty"`
	Quantity   int                `json:"quantity,omitempty"`
	RangeMin   int                `json:"range_min,omitempty"`
	RangeMax   int                `json:"range_max,omitempty"`

	Price    bool `json:"price,omitempty"`
	Listing  bool `json:"listing,omitempty"`
	Related  bool `json:"related,omitempty"`
	Bundle   bool `json:"bundle,omitempty"`
	Close    bool `json:"close,omitempty"`
	Followup bool `json:"followup,omitempty"`
	Words    int  `json:"words"`
}

var (
	numCodeRe   = regexp.MustCompile(`\b\d{5,6}\b`)
	partCodeRe  = regexp.MustCompile(`\b[pu][0-9a-z]{4,}\b`)
	quantityRe  = regexp.MustCompile(`\b(\d{1,6})\s*(cai|chiec|con|bo|cap|set|pcs|sp)\b`)
	soLuongRe   = regexp.MustCompile(`\b(so luong|sl)\s*(\d{1,6})\b`)
	bareQtyRe   = regexp.MustCompile(`^(\d{1,6})$`)
	rangeRe     = regexp.MustCompile(`\b(\d{1,2})\s*(?:-|den|toi|~)\s*(\d{1,2})\b`)
	priceRe     = regexp.MustCompile(`\b(gia|chiet khau|bao gia|ton kho|kho|co san|con hang|co hang|giao|vat)\b`)
	listingRe   = regexp.MustCompile(`\b(liet ke|danh sach|list|cac ma|nhung ma|ma nao|cac loai|nhung loai)\b`)
	relatedRe   = regexp.MustCompile(`\b(di kem|phu kien|linh kien|kem theo|di cung|dong bo|tron bo|full bo|combo)\b`)
	bundleRe    = regexp.MustCompile(`\b(kem theo|di kem|phu kien di kem|phu kien kem theo|dong bo|tron bo|full bo|kem ca bo|di kem du bo)\b`)
	closeRe     = regexp.MustCompile(`\b(so luong|dat hang|don hang|bao gia|giao hang|xuat hoa don|xac nhan|lay hang|lay san pham|combo|mua|chot|chot don)\b`)
	followupRe  = regexp.MustCompile(`\b(thi sao|the sao|sao)\b`)
	quantityCue = []string{"cai", "chiec", "con", "bo", "cap", "set", "pcs", "sp"}
)

// Extract reads codes, slot values and cue flags from normalized text.
// It never consults the catalog: codes are reported as written.
func Extract(normalized string) Extracted {
	ex := Extracted{Words: len(strings.Fields(normalized))}
	if normalized == "" {
		return ex
	}

	ex.Quantity = extractQuantity(normalized)
	ex.Codes = extractCodes(normalized)
	ex.Mentions = catalog.FindMentions(strings.Fields(normalized))
	ex.Categories = catalog.DetectCategories(normalized)
	ex.Amp = catalog.DetectAmp(normalized)
	ex.System = catalog.DetectSystem(normalized)
	ex.HandRobot = catalog.DetectHandRobot(normalized)
	ex.RangeMin, ex.RangeMax = extractRange(normalized)

	ex.Price = priceRe.MatchString(normalized)
	ex.Listing = listingRe.MatchString(normalized)
	ex.Related = relatedRe.MatchString(normalized)
	ex.Bundle = bundleRe.MatchString(normalized)
	ex.Close = closeRe.MatchString(normalized)
	ex.Followup = followupRe.MatchString(normalized)
	return ex
}

// HasProductCue reports whether the message names a product on its own.
func (e Extracted) HasProductCue() bool {
	return len(e.Codes) > 0 || len(e.Categories) > 0
}

// extractCodes returns SKUs (digits) and P/U part numbers (upper case) in
// order of appearance. Numbers that read as quantities are skipped.
func extractCodes(normalized string) []string {
	type hit struct {
		pos  int
		code string
	}
	var hits []hit
	seen := make(map[string]bool)

	for _, loc := range numCodeRe.FindAllStringIndex(normalized, -1) {
		if isQuantityNumber(normalized, loc[0], loc[1]) {
			continue
		}
		hits = append(hits, hit{pos: loc[0], code: normalized[loc[0]:loc[1]]})
	}
	for _, loc := range partCodeRe.FindAllStringIndex(normalized, -1) {
		tok := normalized[loc[0]:loc[1]]
		if !strings.ContainsAny(tok[1:], "0123456789") {
			continue
		}
		hits = append(hits, hit{pos: loc[0], code: strings.ToUpper(tok)})
	}

	// insertion sort by position; a message carries a handful of codes
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	var codes []string
	for _, h := range hits {
		if !seen[h.code] {
			seen[h.code] = true
			codes = append(codes, h.code)
		}
	}
	return codes
}

// isQuantityNumber reports whether a 5-6 digit number reads as a count.
// Tokin SKUs start with 0, counts never do.
func isQuantityNumber(text string, start, end int) bool {
	if text[start] == '0' {
		return false
	}
	after := strings.Fields(text[end:])
	if len(after) > 0 && isUnit(after[0]) && !(after[0] == "con" && len(after) > 1 && after[1] == "hang") {
		return true
	}
	before := strings.TrimSpace(text[:start])
	return strings.HasSuffix(before, "so luong") || strings.HasSuffix(" "+before, " sl")
}

func isUnit(tok string) bool {
	for _, cue := range quantityCue {
		if tok == cue {
			return true
		}
	}
	return false
}

func extractQuantity(normalized string) int {
	if m := soLuongRe.FindStringSubmatch(normalized); m != nil {
		return atoi(m[2])
	}
	for _, loc := range quantityRe.FindAllStringSubmatchIndex(normalized, -1) {
		num := normalized[loc[2]:loc[3]]
		unit := normalized[loc[4]:loc[5]]
		if len(num) >= 5 && num[0] == '0' {
			continue
		}
		// "con hang" is "in stock", not a unit
		if unit == "con" && strings.HasPrefix(strings.TrimSpace(normalized[loc[1]:]), "hang") {
			continue
		}
		return atoi(num)
	}
	if m := bareQtyRe.FindStringSubmatch(normalized); m != nil && len(m[1]) < 5 {
		return atoi(m[1])
	}
	return 0
}

func extractRange(normalized string) (int, int) {
	m := rangeRe.FindStringSubmatch(normalized)
	if m == nil {
		return 0, 0
	}
	lo, hi := atoi(m[1]), atoi(m[2])
	if lo <= 0 || hi < lo {
		return 0, 0
	}
	return lo, hi
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
