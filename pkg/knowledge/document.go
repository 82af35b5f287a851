package knowledge

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"tokinarc-sales-be/pkg/rag"
	"tokinarc-sales-be/pkg/utils"
)

// maxChunkWords splits unusually long entries into several chunks.
const maxChunkWords = 400

// Chunk is the retrieval unit: one entry line with its heading context.
type Chunk struct {
	ID      string `json:"id"`
	Tier    Tier   `json:"tier"`
	Section string `json:"section,omitempty"`
	Title   string `json:"title,omitempty"`
	Entry   Entry  `json:"entry"`
	// Content is the entry text, or a slice of it for long entries.
	Content string `json:"content"`
}

// Format renders the chunk for an LLM prompt.
func (c Chunk) Format() string {
	header := c.Section
	if c.Title != "" && c.Title != c.Section {
		if header != "" {
			header += " / "
		}
		header += c.Title
	}
	prefix := strings.TrimSpace(fmt.Sprintf("[%s] %s", strings.ToUpper(string(c.Tier)), header))
	return fmt.Sprintf("%s\n[%s][%s] %s", prefix, c.Entry.Tag, c.Entry.Priority, c.Content)
}

// Document is a parsed knowledge tier.
type Document struct {
	Tier    Tier
	Path    string
	Raw     string
	Entries []Entry
	Chunks  []Chunk
}

// Signatures returns the normalized text of every entry.
func (d *Document) Signatures() map[string]bool {
	sigs := make(map[string]bool)
	if d == nil {
		return sigs
	}
	for _, e := range d.Entries {
		if s := e.Signature(); s != "" {
			sigs[s] = true
		}
	}
	return sigs
}

// CountByTag tallies entries per tag.
func (d *Document) CountByTag() map[Tag]int {
	out := make(map[Tag]int)
	if d == nil {
		return out
	}
	for _, e := range d.Entries {
		out[e.Tag]++
	}
	return out
}

// ParseDocument reads a tier. Headings set section ("## ") and title
// ("### "); entry lines become chunks; other prose is kept in Raw only.
// Invalid UTF-8, NUL bytes or a malformed entry line make the whole tier
// corrupted.
func ParseDocument(raw []byte, tier Tier) (*Document, error) {
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%s tier is not valid UTF-8: %w", tier, rag.ErrKnowledgeCorrupted)
	}
	if bytes.IndexByte(raw, 0) >= 0 {
		return nil, fmt.Errorf("%s tier contains NUL bytes: %w", tier, rag.ErrKnowledgeCorrupted)
	}

	doc := &Document{Tier: tier, Raw: string(raw)}
	var section, title string
	for n, line := range strings.Split(doc.Raw, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "### "):
			title = strings.TrimSpace(trimmed[4:])
		case strings.HasPrefix(trimmed, "## "):
			section = strings.TrimSpace(trimmed[3:])
			title = section
		case strings.HasPrefix(trimmed, "- ["):
			e, err := ParseEntry(trimmed)
			if err != nil {
				return nil, fmt.Errorf("%s tier line %d: %v: %w", tier, n+1, err, rag.ErrKnowledgeCorrupted)
			}
			doc.Entries = append(doc.Entries, e)
			for _, part := range utils.SplitWords(e.Text, maxChunkWords) {
				doc.Chunks = append(doc.Chunks, Chunk{
					ID:      fmt.Sprintf("%s-%d", tier, len(doc.Chunks)),
					Tier:    tier,
					Section: section,
					Title:   title,
					Entry:   e,
					Content: part,
				})
			}
		}
	}
	return doc, nil
}

// ReadDocument loads a tier from disk. A missing file is an empty tier.
func ReadDocument(path string, tier Tier) (*Document, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Document{Tier: tier, Path: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s tier: %w", tier, err)
	}
	doc, err := ParseDocument(raw, tier)
	if err != nil {
		return nil, err
	}
	doc.Path = path
	return doc, nil
}
