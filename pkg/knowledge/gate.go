package knowledge

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/rag"
	"tokinarc-sales-be/pkg/utils"
)

// DefaultMaxNewLines caps how many lines one turn may append.
const DefaultMaxNewLines = 5

var (
	blockedTerms = []string{
		"bo luat", "ignore", "system prompt", "tiet lo", "agentx", "excel",
		"log noi bo", "prompt noi bo", "noi bo", "internal", "typically include",
		"distinguish between", "manual torch", "robot welding",
	}
	overridePhrases = []string{
		"bo qua huong dan", "bo qua quy tac", "quy tac moi", "tu nay ve sau",
		"luon luon tra loi", "khong can kiem tra", "override", "disregard",
	}
	specTerms = []string{"size", "dai", "ren", "mm", "amp", "350a", "500a"}

	skuRe          = regexp.MustCompile(`\b\d{5,6}\b`)
	partCodeRe     = regexp.MustCompile(`\b[pu][0-9a-z]{4,}\b`)
	numberRe       = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	ampTokenRe     = regexp.MustCompile(`\b(350|500)\s*a\b`)
	tagImpersonate = regexp.MustCompile(`(?i)\[(QA|SYN|RULE|TEMPLATE|high|medium|low)\]|\[\d{4}-\d{2}-\d{2}\]`)
)

// TurnContext is the conversation evidence a candidate must be grounded in.
type TurnContext struct {
	UserMessage string
	Intent      string
	Anchor      string
}

// Text joins the non-empty parts.
func (t TurnContext) Text() string {
	var parts []string
	for _, p := range []string{t.UserMessage, t.Intent, t.Anchor} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Rejection records why a candidate was dropped.
type Rejection struct {
	Line   string `json:"line"`
	Reason string `json:"reason"`
}

// Report is the outcome of one gate run.
type Report struct {
	Accepted []Entry     `json:"accepted"`
	Rejected []Rejection `json:"rejected"`
	Appended int         `json:"appended"`
}

// Gate validates candidates and appends the survivors to the delta tier.
// It is the only writer of the delta file. Runs are serialized in-process by
// mu and across processes by the delta lock file.
type Gate struct {
	store       *Store
	maxNewLines int
	logger      logger.ILogger
	audit       logger.ILogger
	now         func() time.Time

	mu       sync.Mutex
	appended atomic.Int64
}

// NewGate builds a gate over store. audit may be the main logger.
func NewGate(store *Store, maxNewLines int, log, audit logger.ILogger) *Gate {
	if maxNewLines <= 0 {
		maxNewLines = DefaultMaxNewLines
	}
	if audit == nil {
		audit = log
	}
	return &Gate{store: store, maxNewLines: maxNewLines, logger: log, audit: audit, now: time.Now}
}

// Appended is the number of lines this process has appended so far.
func (g *Gate) Appended() int64 { return g.appended.Load() }

// ProposeAndGate runs every check on candidates and appends the accepted
// lines atomically. Rejections are reported, not returned as errors. A
// corrupted tier stops the run with rag.ErrKnowledgeCorrupted and nothing is
// written.
func (g *Gate) ProposeAndGate(ctx context.Context, candidates []Candidate, idx *catalog.Index, turn TurnContext) (Report, error) {
	var report Report
	if !g.store.Enabled() || len(candidates) == 0 {
		return report, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	unlock, err := g.store.lockDelta(ctx)
	if err != nil {
		return report, fmt.Errorf("gate: %w", err)
	}
	defer unlock()

	if err := g.store.EnsureFiles(); err != nil {
		return report, fmt.Errorf("gate: %w", err)
	}
	tiers := g.store.Load(ctx)
	if err := tiers.Err(); err != nil {
		g.logger.Error("GATE", "Refusing to append to corrupted knowledge", map[string]interface{}{"error": err.Error()})
		return report, fmt.Errorf("gate: %w", err)
	}

	existing := tiers.Core.Signatures()
	for sig := range tiers.Delta.Signatures() {
		existing[sig] = true
	}
	contextNorm := utils.NormalizeText(turn.Text())
	batch := make(map[string]bool)

	for _, c := range candidates {
		if len(report.Accepted) >= g.maxNewLines {
			report.Rejected = append(report.Rejected, Rejection{Line: candidateLine(c), Reason: "max new lines reached"})
			continue
		}
		entry, err := g.check(c, idx, existing, batch, contextNorm)
		if err != nil {
			report.Rejected = append(report.Rejected, Rejection{Line: candidateLine(c), Reason: err.Error()})
			g.audit.Info("GATE", "Candidate rejected", map[string]interface{}{
				"line":   candidateLine(c),
				"reason": err.Error(),
			})
			continue
		}
		batch[entry.Signature()] = true
		report.Accepted = append(report.Accepted, entry)
	}

	if len(report.Accepted) == 0 {
		return report, nil
	}
	if err := g.appendEntries(tiers.Delta, report.Accepted); err != nil {
		g.logger.Error("GATE", "Append failed, delta left unchanged", map[string]interface{}{"error": err.Error()})
		report.Accepted = nil
		return report, err
	}

	report.Appended = len(report.Accepted)
	total := g.appended.Add(int64(report.Appended))
	for _, e := range report.Accepted {
		g.audit.Info("GATE", "Candidate appended", map[string]interface{}{"line": e.String()})
	}
	g.logger.Info("GATE", "Knowledge delta updated", map[string]interface{}{
		"appended": report.Appended,
		"rejected": len(report.Rejected),
		"total":    total,
	})
	return report, nil
}

func candidateLine(c Candidate) string {
	if c.Line != "" {
		return c.Line
	}
	return fmt.Sprintf("- [%s][%s][%s] %s", c.Date, c.Tag, c.Priority, c.Text)
}

func reject(reason string) error {
	return fmt.Errorf("%s: %w", reason, rag.ErrValidationRejected)
}

// check applies the validation chain in order and returns the entry to
// append.
func (g *Gate) check(c Candidate, idx *catalog.Index, existing, batch map[string]bool, contextNorm string) (Entry, error) {
	tag := strings.ToUpper(strings.TrimSpace(c.Tag))
	if !validTag(tag) {
		return Entry{}, reject(fmt.Sprintf("tag %q not allowed", c.Tag))
	}
	prio := strings.ToLower(strings.TrimSpace(c.Priority))
	if !validPriority(prio) {
		return Entry{}, reject(fmt.Sprintf("priority %q not allowed", c.Priority))
	}
	text := strings.TrimSpace(c.Text)
	if strings.ContainsAny(text, "\r\n") {
		return Entry{}, reject("multi-line text")
	}

	sig := Signature(text)
	if sig == "" {
		return Entry{}, reject("empty text")
	}
	if Tag(tag) == TagSYN && (hasCode(sig) || mentionsSpecs(sig) || numberRe.MatchString(sig)) {
		tag = string(TagQA)
	}

	switch {
	case containsAny(sig, blockedTerms):
		return Entry{}, reject("blocked term")
	case utils.ContainsAnyPhrase(sig, overridePhrases) || tagImpersonate.MatchString(text):
		return Entry{}, reject("instruction override or tag impersonation")
	case existing[sig] || nearDuplicate(sig, existing):
		return Entry{}, reject("duplicate of existing knowledge")
	case batch[sig] || nearDuplicate(sig, batch):
		return Entry{}, reject("duplicate within batch")
	case mentionsSpecs(sig) && !hasCode(sig):
		return Entry{}, reject("spec terms without SKU")
	case !mostlyVietnamese(text):
		return Entry{}, reject("not mostly Vietnamese")
	case genericHandRobot(Tag(tag), sig):
		return Entry{}, reject("generic hand/robot template")
	}

	skus := skuRe.FindAllString(sig, -1)
	for _, sku := range skus {
		if idx == nil || !idx.Has(sku) {
			return Entry{}, reject(fmt.Sprintf("SKU %s not in catalog", sku))
		}
	}
	codes := append([]string(nil), skus...)
	for _, pc := range partCodes(sig) {
		var recs []catalog.Record
		if idx != nil {
			recs = idx.Lookup(pc)
		}
		if len(recs) == 0 {
			return Entry{}, reject(fmt.Sprintf("part number %s not in catalog", strings.ToUpper(pc)))
		}
		codes = append(codes, pc)
		for _, r := range recs {
			skus = append(skus, r.SKU)
		}
	}
	if len(codes) > 0 && !anySKUInContext(codes, contextNorm) {
		return Entry{}, reject("SKU not in turn context")
	}
	if err := ampConsistent(sig, skus, idx); err != nil {
		return Entry{}, err
	}
	if Tag(tag) == TagQA && !relevantQA(sig, contextNorm) {
		return Entry{}, reject("QA not relevant to turn")
	}

	date := c.Date
	if date == "" {
		date = g.now().UTC().Format("2006-01-02")
	}
	return Entry{Date: date, Tag: Tag(tag), Priority: Priority(prio), Text: text}, nil
}

func (g *Gate) appendEntries(delta *Document, entries []Entry) error {
	current := DefaultDelta
	if delta != nil && delta.Raw != "" {
		current = delta.Raw
	}
	if !strings.Contains(current, changelogHeading) {
		current = strings.TrimRight(current, "\n") + "\n\n" + changelogHeading + "\n"
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(current, "\n"))
	b.WriteString("\n")
	for _, e := range entries {
		b.WriteString(e.String())
		b.WriteString("\n")
	}

	if err := writeAtomic(g.store.DeltaPath(), []byte(b.String())); err != nil {
		return fmt.Errorf("append delta: %w", err)
	}
	return nil
}

// partCodes returns the P and U part numbers in sig. A token needs a digit
// after its prefix to count, so "phong" or "uong" are words.
func partCodes(sig string) []string {
	var out []string
	for _, tok := range partCodeRe.FindAllString(sig, -1) {
		if strings.ContainsAny(tok[1:], "0123456789") {
			out = append(out, tok)
		}
	}
	return out
}

func hasCode(sig string) bool {
	return skuRe.MatchString(sig) || len(partCodes(sig)) > 0
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func nearDuplicate(sig string, set map[string]bool) bool {
	for have := range set {
		if jaccard(have, sig) >= DuplicateJaccard {
			return true
		}
	}
	return false
}

func mentionsSpecs(sig string) bool {
	return utils.ContainsAnyPhrase(sig, specTerms)
}

// mostlyVietnamese rejects text where more than 60% of the tokens are pure
// ASCII. Diacritics are what set Vietnamese apart here.
func mostlyVietnamese(text string) bool {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return false
	}
	ascii := 0
	for _, t := range tokens {
		if utils.IsASCII(t) {
			ascii++
		}
	}
	return float64(ascii)/float64(len(tokens)) <= 0.6
}

func genericHandRobot(tag Tag, sig string) bool {
	if tag != TagTEMPLATE && tag != TagRULE {
		return false
	}
	return strings.Contains(sig, "robot") && utils.ContainsPhrase(sig, "tay") &&
		!skuRe.MatchString(sig) && !numberRe.MatchString(sig)
}

func anySKUInContext(skus []string, contextNorm string) bool {
	for _, sku := range skus {
		if strings.Contains(contextNorm, sku) {
			return true
		}
	}
	return false
}

// ampConsistent rejects lines that pin an amp rating the mentioned SKUs do
// not have.
func ampConsistent(sig string, skus []string, idx *catalog.Index) error {
	if idx == nil || len(skus) == 0 {
		return nil
	}
	amps := ampTokenRe.FindAllStringSubmatch(sig, -1)
	if len(amps) == 0 {
		return nil
	}
	mentioned := make(map[catalog.Amp]bool)
	for _, m := range amps {
		mentioned[catalog.Amp(m[1]+"A")] = true
	}
	for _, sku := range skus {
		r, ok := idx.Record(sku)
		if !ok || r.Amp == catalog.AmpUnset {
			continue
		}
		if !mentioned[r.Amp] {
			return reject(fmt.Sprintf("amp inconsistent with SKU %s (%s)", sku, r.Amp))
		}
	}
	return nil
}

func relevantQA(sig, contextNorm string) bool {
	if contextNorm == "" {
		return false
	}
	ctxNums := make(map[string]bool)
	for _, n := range numberRe.FindAllString(contextNorm, -1) {
		ctxNums[n] = true
	}
	for _, n := range numberRe.FindAllString(sig, -1) {
		if !ctxNums[n] {
			return false
		}
	}

	ctxTokens := make(map[string]bool)
	for _, t := range strings.Fields(contextNorm) {
		if len(t) > 2 {
			ctxTokens[t] = true
		}
	}
	overlap, content := false, 0
	for _, t := range strings.Fields(sig) {
		if len(t) <= 2 {
			continue
		}
		content++
		if ctxTokens[t] {
			overlap = true
		}
	}
	return content == 0 || len(ctxTokens) == 0 || overlap
}

// IsRejection reports whether err is a gate validation rejection.
func IsRejection(err error) bool {
	return errors.Is(err, rag.ErrValidationRejected)
}
