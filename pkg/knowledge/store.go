package knowledge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"tokinarc-sales-be/internal/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	// DuplicateJaccard is the token overlap above which two entries are the
	// same fact.
	DuplicateJaccard = 0.9
	DefaultMinScore  = 1.0
	DefaultTopK      = 6
)

// Config locates the tiers and tunes retrieval.
type Config struct {
	Dir      string
	Enabled  bool
	MinScore float64
	TopK     int
}

// Scored is a chunk with its relevance score.
type Scored struct {
	Chunk
	Score float64 `json:"score"`
}

// Store reads the core and delta tiers. Nothing is cached: every call sees
// the files as they are on disk.
type Store struct {
	cfg    Config
	scorer Scorer
	logger logger.ILogger
}

func NewStore(cfg Config, scorer Scorer, logger logger.ILogger) *Store {
	if scorer == nil {
		scorer = DefaultScorer()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	return &Store{cfg: cfg, scorer: scorer, logger: logger}
}

func (s *Store) Enabled() bool     { return s.cfg.Enabled }
func (s *Store) TopK() int         { return s.cfg.TopK }
func (s *Store) CorePath() string  { return filepath.Join(s.cfg.Dir, CoreFileName) }
func (s *Store) DeltaPath() string { return filepath.Join(s.cfg.Dir, DeltaFileName) }

// EnsureFiles creates the directory and seeds missing tiers.
func (s *Store) EnsureFiles() error {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create knowledge dir: %w", err)
	}
	seeds := map[string]string{s.CorePath(): DefaultCore, s.DeltaPath(): DefaultDelta}
	for path, content := range seeds {
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := writeAtomic(path, []byte(content)); err != nil {
			return err
		}
		s.logger.Info("KNOWLEDGE", "Seeded knowledge tier", map[string]interface{}{"path": path})
	}
	return nil
}

// Tiers is both documents read at one point in time. A corrupted tier is
// nil and its error is kept.
type Tiers struct {
	Core     *Document
	Delta    *Document
	CoreErr  error
	DeltaErr error
}

// Err joins the per-tier errors.
func (t Tiers) Err() error {
	return errors.Join(t.CoreErr, t.DeltaErr)
}

// Load reads both tiers concurrently.
func (s *Store) Load(ctx context.Context) Tiers {
	var t Tiers
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		t.Core, t.CoreErr = ReadDocument(s.CorePath(), TierCore)
		return nil
	})
	g.Go(func() error {
		t.Delta, t.DeltaErr = ReadDocument(s.DeltaPath(), TierDelta)
		return nil
	})
	_ = g.Wait()
	return t
}

// Retrieve returns at most k chunks relevant to query, best first, delta
// before core on equal scores. A corrupted tier is skipped; the chunks of
// the healthy tier are still returned alongside an error wrapping
// rag.ErrKnowledgeCorrupted.
func (s *Store) Retrieve(ctx context.Context, query string, k int) ([]Scored, error) {
	if !s.cfg.Enabled || k <= 0 {
		return nil, nil
	}
	q := NewQuery(query)
	if len(q.Tokens) == 0 {
		return nil, nil
	}

	tiers := s.Load(ctx)
	if err := tiers.Err(); err != nil {
		s.logger.Warn("KNOWLEDGE", "Skipping unreadable tier", map[string]interface{}{"error": err.Error()})
	}

	var chunks []Chunk
	if tiers.Delta != nil {
		chunks = append(chunks, tiers.Delta.Chunks...)
	}
	if tiers.Core != nil {
		chunks = append(chunks, tiers.Core.Chunks...)
	}
	chunks = Dedupe(chunks)

	var scored []Scored
	for _, c := range chunks {
		score := s.scorer.Score(q, c)
		if score <= 0 || score < s.cfg.MinScore {
			continue
		}
		scored = append(scored, Scored{Chunk: c, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Tier == TierDelta && scored[j].Tier != TierDelta
	})
	if len(scored) > k {
		scored = scored[:k]
	}

	s.logger.Debug("KNOWLEDGE", "Retrieved chunks", map[string]interface{}{
		"query":   q.Normalized,
		"matched": len(scored),
	})
	return scored, tiers.Err()
}

// Dedupe drops near-duplicate chunks, keeping the first copy. Callers put
// delta chunks first so the learned copy wins.
func Dedupe(chunks []Chunk) []Chunk {
	var kept []Chunk
	var sigs []string
	for _, c := range chunks {
		sig := Signature(c.Content)
		if sig == "" {
			continue
		}
		dup := false
		for _, have := range sigs {
			if have == sig || jaccard(have, sig) >= DuplicateJaccard {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
			sigs = append(sigs, sig)
		}
	}
	return kept
}

// Stats is what the knowledge endpoint and CLI report.
type Stats struct {
	CoreEntries  int         `json:"core_entries"`
	DeltaEntries int         `json:"delta_entries"`
	CoreByTag    map[Tag]int `json:"core_by_tag"`
	DeltaByTag   map[Tag]int `json:"delta_by_tag"`
	Corrupted    []string    `json:"corrupted,omitempty"`
}

func (s *Store) Stats(ctx context.Context) Stats {
	t := s.Load(ctx)
	st := Stats{CoreByTag: t.Core.CountByTag(), DeltaByTag: t.Delta.CountByTag()}
	if t.Core != nil {
		st.CoreEntries = len(t.Core.Entries)
	}
	if t.Delta != nil {
		st.DeltaEntries = len(t.Delta.Entries)
	}
	if t.CoreErr != nil {
		st.Corrupted = append(st.Corrupted, t.CoreErr.Error())
	}
	if t.DeltaErr != nil {
		st.Corrupted = append(st.Corrupted, t.DeltaErr.Error())
	}
	return st
}
