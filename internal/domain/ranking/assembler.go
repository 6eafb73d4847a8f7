package ranking

import (
	"time"

	"github.com/okian/vitrine/internal/domain/model"
)

// Assembler turns a ranked list into a bounded feed.
type Assembler interface {
	Name() string
	// Assemble expects ranked in descending score order. It never returns
	// nil and never emits the same candidate twice.
	Assemble(ranked []model.ScoredCandidate, p model.Profile, now time.Time) []model.ScoredCandidate
}

// Buckets is the partition of a ranked list used by interleaving.
type Buckets struct {
	Promoted    []model.ScoredCandidate
	Liked       []model.ScoredCandidate
	Priority    []model.ScoredCandidate
	Exploration []model.ScoredCandidate
	Seen        int // dropped, counted only
}

// Organic returns priority followed by exploration.
func (b Buckets) Organic() []model.ScoredCandidate {
	out := make([]model.ScoredCandidate, 0, len(b.Priority)+len(b.Exploration))
	out = append(out, b.Priority...)
	return append(out, b.Exploration...)
}

// Partition places every candidate in the first bucket that claims it:
// promoted, liked, seen, then priority (favourite category) or exploration.
func Partition(ranked []model.ScoredCandidate, p model.Profile, now time.Time) Buckets {
	var b Buckets
	for _, c := range ranked {
		switch {
		case c.ActivelyPromoted(now):
			b.Promoted = append(b.Promoted, c)
		case p.HasLiked(c.ID):
			b.Liked = append(b.Liked, c)
		case p.HasSeen(c.ID):
			b.Seen++
		case p.HasCategory(c.CategoryID):
			b.Priority = append(b.Priority, c)
		default:
			b.Exploration = append(b.Exploration, c)
		}
	}
	return b
}

// InterleaveAssembler builds the video feed: organic content with one
// promoted video every PromotionInterval slots, liked videos as backfill.
type InterleaveAssembler struct {
	target   int
	interval int
}

// NewInterleaveAssembler builds the video assembler from cfg.
func NewInterleaveAssembler(cfg AssemblyConfig) *InterleaveAssembler {
	def := DefaultConfig().VideoAssembly
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = def.TargetSize
	}
	if cfg.PromotionInterval <= 0 {
		cfg.PromotionInterval = def.PromotionInterval
	}
	return &InterleaveAssembler{target: cfg.TargetSize, interval: cfg.PromotionInterval}
}

func (a *InterleaveAssembler) Name() string { return "interleave" }

type feedBuilder struct {
	out      []model.ScoredCandidate
	included map[string]struct{}
	target   int
}

func (f *feedBuilder) full() bool { return len(f.out) >= f.target }

func (f *feedBuilder) has(id string) bool {
	_, ok := f.included[id]
	return ok
}

func (f *feedBuilder) add(c model.ScoredCandidate) bool {
	if f.has(c.ID) {
		return false
	}
	f.included[c.ID] = struct{}{}
	f.out = append(f.out, c)
	return true
}

// promotedCursor cycles through the promoted bucket with wraparound.
type promotedCursor struct {
	items []model.ScoredCandidate
	next  int
}

// take returns the next promoted candidate not yet in the feed, trying each
// one at most once per call.
func (pc *promotedCursor) take(f *feedBuilder) (model.ScoredCandidate, bool) {
	for range len(pc.items) {
		c := pc.items[pc.next]
		pc.next = (pc.next + 1) % len(pc.items)
		if !f.has(c.ID) {
			return c, true
		}
	}
	return model.ScoredCandidate{}, false
}

func (a *InterleaveAssembler) Assemble(ranked []model.ScoredCandidate, p model.Profile, now time.Time) []model.ScoredCandidate {
	b := Partition(ranked, p, now)
	organic := b.Organic()

	f := &feedBuilder{
		out:      make([]model.ScoredCandidate, 0, min(a.target, len(ranked))),
		included: make(map[string]struct{}, len(ranked)),
		target:   a.target,
	}
	cursor := &promotedCursor{items: b.Promoted}

	for next := 0; !f.full() && next < len(organic); {
		if len(f.out)%a.interval == 0 {
			if c, ok := cursor.take(f); ok {
				f.add(c)
				continue
			}
		}
		f.add(organic[next])
		next++
	}

	for !f.full() {
		c, ok := cursor.take(f)
		if !ok {
			break
		}
		f.add(c)
	}

	for _, c := range b.Liked {
		if f.full() {
			break
		}
		f.add(c)
	}

	if len(f.out) > a.target {
		f.out = f.out[:a.target]
	}
	return f.out
}

// ScoreOrderAssembler builds the product feed. Promotion is already part
// of the score, so it only sorts, dedupes and truncates.
type ScoreOrderAssembler struct {
	target int
}

// NewScoreOrderAssembler builds the product assembler from cfg.
func NewScoreOrderAssembler(cfg AssemblyConfig) *ScoreOrderAssembler {
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = DefaultConfig().ProductAssembly.TargetSize
	}
	return &ScoreOrderAssembler{target: cfg.TargetSize}
}

func (a *ScoreOrderAssembler) Name() string { return "score_order" }

func (a *ScoreOrderAssembler) Assemble(ranked []model.ScoredCandidate, _ model.Profile, _ time.Time) []model.ScoredCandidate {
	sorted := make([]model.ScoredCandidate, len(ranked))
	copy(sorted, ranked)
	sortByScore(sorted)

	f := &feedBuilder{
		out:      make([]model.ScoredCandidate, 0, min(a.target, len(sorted))),
		included: make(map[string]struct{}, len(sorted)),
		target:   a.target,
	}
	for _, c := range sorted {
		if f.full() {
			break
		}
		f.add(c)
	}
	return f.out
}
