package ranking

import "github.com/okian/vitrine/internal/domain/model"

// PerformanceGate drops videos that had a fair test audience and still
// under-perform.
type PerformanceGate struct {
	cfg GateConfig
}

// NewPerformanceGate builds a gate with the given thresholds.
func NewPerformanceGate(cfg GateConfig) *PerformanceGate {
	return &PerformanceGate{cfg: cfg}
}

// Passes reports whether c stays in the pool. Items still in their test
// audience always pass.
func (g *PerformanceGate) Passes(c model.Candidate) bool {
	if c.Views < g.cfg.TestAudienceSize {
		return true
	}
	conv, like := Rates(c)
	return conv >= g.cfg.MinConversionRate && like >= g.cfg.MinLikeRate
}

// Filter splits cands into kept and rejected, preserving order.
func (g *PerformanceGate) Filter(cands []model.Candidate) (kept, rejected []model.Candidate) {
	kept = make([]model.Candidate, 0, len(cands))
	for _, c := range cands {
		if g.Passes(c) {
			kept = append(kept, c)
		} else {
			rejected = append(rejected, c)
		}
	}
	return kept, rejected
}
