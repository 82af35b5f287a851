package knowledge

import (
	"strings"

	"tokinarc-sales-be/pkg/utils"
)

// Query is a normalized retrieval query.
type Query struct {
	Normalized string
	Tokens     []string
	Bigrams    []string
}

func NewQuery(text string) Query {
	n := utils.NormalizeText(text)
	tokens := strings.Fields(n)
	q := Query{Normalized: n, Tokens: tokens}
	for i := 0; i+1 < len(tokens); i++ {
		q.Bigrams = append(q.Bigrams, tokens[i]+" "+tokens[i+1])
	}
	return q
}

// Scorer ranks a chunk against a query. Higher is more relevant; zero means
// unrelated.
type Scorer interface {
	Score(q Query, c Chunk) float64
}

// KeywordScorer counts query tokens in the chunk and adds bonuses for
// heading hits, adjacent token pairs and the whole query appearing verbatim.
type KeywordScorer struct {
	TitleWeight   float64
	SectionWeight float64
	BigramWeight  float64
	PhraseWeight  float64
}

func DefaultScorer() KeywordScorer {
	return KeywordScorer{TitleWeight: 2, SectionWeight: 1, BigramWeight: 1.5, PhraseWeight: 3}
}

func (s KeywordScorer) Score(q Query, c Chunk) float64 {
	content := utils.NormalizeText(c.Content)
	contentTokens := strings.Fields(content)
	if len(contentTokens) == 0 || len(q.Tokens) == 0 {
		return 0
	}

	counts := make(map[string]int, len(contentTokens))
	for _, tok := range contentTokens {
		counts[tok]++
	}
	title := tokenSet(c.Title)
	section := tokenSet(c.Section)

	var score float64
	for _, tok := range q.Tokens {
		score += float64(counts[tok])
		if title[tok] {
			score += s.TitleWeight
		}
		if section[tok] {
			score += s.SectionWeight
		}
	}
	for _, bg := range q.Bigrams {
		if utils.ContainsPhrase(content, bg) {
			score += s.BigramWeight
		}
	}
	if len(q.Tokens) > 1 && utils.ContainsPhrase(content, q.Normalized) {
		score += s.PhraseWeight
	}
	return score
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range utils.Tokenize(text) {
		set[tok] = true
	}
	return set
}

// jaccard is the token-set overlap of two normalized strings.
func jaccard(a, b string) float64 {
	sa, sb := make(map[string]bool), make(map[string]bool)
	for _, t := range strings.Fields(a) {
		sa[t] = true
	}
	for _, t := range strings.Fields(b) {
		sb[t] = true
	}
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	inter := 0
	for t := range sa {
		if sb[t] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}
