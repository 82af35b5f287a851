package knowledge

import (
	"fmt"
	"regexp"
	"strings"

	"tokinarc-sales-be/pkg/utils"
)

// Tag is the closed set of knowledge line kinds.
type Tag string

const (
	TagQA       Tag = "QA"
	TagSYN      Tag = "SYN"
	TagRULE     Tag = "RULE"
	TagTEMPLATE Tag = "TEMPLATE"
)

// Priority orders how much an entry should weigh in prompts.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Tier is where a chunk lives. Core is curated by hand, delta is learned.
type Tier string

const (
	TierCore  Tier = "core"
	TierDelta Tier = "delta"
)

func validTag(t string) bool {
	switch Tag(t) {
	case TagQA, TagSYN, TagRULE, TagTEMPLATE:
		return true
	}
	return false
}

func validPriority(p string) bool {
	switch Priority(p) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Entry is one "- [YYYY-MM-DD][TAG][priority] text" line.
type Entry struct {
	Date     string   `json:"date"`
	Tag      Tag      `json:"tag"`
	Priority Priority `json:"priority"`
	Text     string   `json:"text"`
}

func (e Entry) String() string {
	return fmt.Sprintf("- [%s][%s][%s] %s", e.Date, e.Tag, e.Priority, e.Text)
}

// Signature is the normalized text used for duplicate detection.
func (e Entry) Signature() string {
	return Signature(e.Text)
}

// Signature normalizes free text for duplicate detection.
func Signature(text string) string {
	return utils.NormalizeText(text)
}

// entryShapeRe accepts any bracketed tag and priority so that invalid
// values can be reported instead of silently skipped.
var entryShapeRe = regexp.MustCompile(`^-\s*\[(\d{4}-\d{2}-\d{2})\]\[([A-Za-z]+)\]\[([A-Za-z]+)\]\s+(.+)$`)

// Candidate is a proposed line before the gate has looked at it. Fields are
// raw so the gate can reject values outside the closed sets.
type Candidate struct {
	Date     string `json:"date"`
	Tag      string `json:"tag"`
	Priority string `json:"priority"`
	Text     string `json:"text"`
	Line     string `json:"line"`
}

// ParseCandidate splits an entry line into its parts without validating the
// tag or priority.
func ParseCandidate(line string) (Candidate, bool) {
	line = strings.TrimSpace(line)
	m := entryShapeRe.FindStringSubmatch(line)
	if m == nil {
		return Candidate{}, false
	}
	return Candidate{
		Date:     m[1],
		Tag:      m[2],
		Priority: m[3],
		Text:     strings.TrimSpace(m[4]),
		Line:     line,
	}, true
}

// ParseEntry parses and validates a stored entry line.
func ParseEntry(line string) (Entry, error) {
	c, ok := ParseCandidate(line)
	if !ok {
		return Entry{}, fmt.Errorf("malformed entry %q", utils.TruncateRunes(line, 80))
	}
	if !validTag(c.Tag) {
		return Entry{}, fmt.Errorf("unknown tag %q", c.Tag)
	}
	if !validPriority(c.Priority) {
		return Entry{}, fmt.Errorf("unknown priority %q", c.Priority)
	}
	return Entry{Date: c.Date, Tag: Tag(c.Tag), Priority: Priority(c.Priority), Text: c.Text}, nil
}
