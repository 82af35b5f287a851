package catalog

import (
	"regexp"
	"sort"
	"strings"

	"tokinarc-sales-be/pkg/utils"
)

// Category is the accessory group a record belongs to.
type Category string

const (
	CategoryTip       Category = "TIP"
	CategoryTipBody   Category = "TIP_BODY"
	CategoryInsulator Category = "INSULATOR"
	CategoryNozzle    Category = "NOZZLE"
	CategoryOrifice   Category = "ORIFICE"
	CategoryOther     Category = "OTHER"
)

// BundleCategories are the parts that travel together around a torch tip.
var BundleCategories = []Category{
	CategoryTipBody,
	CategoryInsulator,
	CategoryNozzle,
	CategoryOrifice,
}

// Label returns the Vietnamese display name.
func (c Category) Label() string {
	switch c {
	case CategoryTip:
		return "Béc hàn"
	case CategoryTipBody:
		return "Thân giữ béc"
	case CategoryInsulator:
		return "Cách điện"
	case CategoryNozzle:
		return "Chụp khí"
	case CategoryOrifice:
		return "Sứ phân phối khí"
	default:
		return "Phụ kiện khác"
	}
}

// Amp is the current rating of a MIG torch line.
type Amp string

const (
	AmpUnset Amp = ""
	Amp350   Amp = "350A"
	Amp500   Amp = "500A"
)

// System is the Tokinarc torch system letter.
type System string

const (
	SystemUnset System = ""
	SystemN     System = "N"
	SystemD     System = "D"
)

// HandRobot tells whether a part fits hand-held or robot torches.
type HandRobot string

const (
	HandRobotUnset HandRobot = ""
	Hand           HandRobot = "HAND"
	Robot          HandRobot = "ROBOT"
)

type categoryPhrase struct {
	category Category
	tokens   []string
}

// Longest phrases are matched first so "than giu bec" never reads as TIP.
var categoryPhrases = buildCategoryPhrases(map[Category][]string{
	CategoryTip:       {"bec han", "contact tip", "tip", "bec"},
	CategoryTipBody:   {"than giu bec", "tip body", "tip holder", "than bec", "holder", "body"},
	CategoryNozzle:    {"chup khi", "nozzle", "chup"},
	CategoryInsulator: {"cach dien", "insulator"},
	CategoryOrifice:   {"su phan phoi khi", "su phan phoi", "gas diffuser", "orifice", "diffuser"},
})

func buildCategoryPhrases(table map[Category][]string) []categoryPhrase {
	var phrases []categoryPhrase
	for cat, list := range table {
		for _, p := range list {
			phrases = append(phrases, categoryPhrase{category: cat, tokens: strings.Fields(p)})
		}
	}
	sort.SliceStable(phrases, func(i, j int) bool {
		if len(phrases[i].tokens) != len(phrases[j].tokens) {
			return len(phrases[i].tokens) > len(phrases[j].tokens)
		}
		return strings.Join(phrases[i].tokens, " ") < strings.Join(phrases[j].tokens, " ")
	})
	return phrases
}

// Mention is a category phrase found in a token stream, [Start, End) in tokens.
type Mention struct {
	Category Category
	Start    int
	End      int
}

// FindMentions scans normalized tokens for category phrases, left to right,
// without overlaps.
func FindMentions(tokens []string) []Mention {
	var mentions []Mention
	for i := 0; i < len(tokens); {
		matched := false
		for _, p := range categoryPhrases {
			if hasPrefixTokens(tokens[i:], p.tokens) {
				mentions = append(mentions, Mention{Category: p.category, Start: i, End: i + len(p.tokens)})
				i += len(p.tokens)
				matched = true
				break
			}
		}
		if !matched {
			i++
		}
	}
	return mentions
}

func hasPrefixTokens(tokens, prefix []string) bool {
	if len(prefix) > len(tokens) {
		return false
	}
	for i := range prefix {
		if tokens[i] != prefix[i] {
			return false
		}
	}
	return true
}

// DetectCategories returns the distinct categories named in normalized text,
// in order of first appearance.
func DetectCategories(normalized string) []Category {
	var out []Category
	seen := make(map[Category]bool)
	for _, m := range FindMentions(strings.Fields(normalized)) {
		if !seen[m.Category] {
			seen[m.Category] = true
			out = append(out, m.Category)
		}
	}
	return out
}

// ParseCategory maps a free-form category cell ("TIP BODY", "Chụp khí") to
// a Category.
func ParseCategory(raw string) Category {
	n := utils.NormalizeText(strings.ReplaceAll(raw, "_", " "))
	if n == "" {
		return CategoryOther
	}
	if cats := DetectCategories(n); len(cats) > 0 {
		return cats[0]
	}
	return CategoryOther
}

var ampRe = regexp.MustCompile(`\b(350|500)\s*a\b`)

// DetectAmp finds a 350A/500A marker in normalized text.
func DetectAmp(normalized string) Amp {
	m := ampRe.FindStringSubmatch(normalized)
	if m == nil {
		return AmpUnset
	}
	return Amp(m[1] + "A")
}

// ParseAmp accepts "350", "350A", "350 a".
func ParseAmp(raw string) Amp {
	n := utils.NormalizeText(raw)
	if amp := DetectAmp(n); amp != AmpUnset {
		return amp
	}
	return DetectAmp(n + "a")
}

// DetectSystem looks for a standalone "n" or "d" token.
func DetectSystem(normalized string) System {
	for _, tok := range strings.Fields(normalized) {
		switch tok {
		case "n":
			return SystemN
		case "d":
			return SystemD
		}
	}
	return SystemUnset
}

// DetectHandRobot reads hand/robot wording from normalized text.
func DetectHandRobot(normalized string) HandRobot {
	if strings.Contains(normalized, "robot") {
		return Robot
	}
	if utils.ContainsAnyPhrase(normalized, []string{"tay", "hand", "cam tay", "manual"}) {
		return Hand
	}
	return HandRobotUnset
}
