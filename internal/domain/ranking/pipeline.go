package ranking

import (
	"time"

	"github.com/okian/vitrine/internal/domain/model"
)

// Stats describes one pipeline run.
type Stats struct {
	Pool     int
	Rejected int
	Promoted int
	Returned int
}

// VideoPipeline runs gate, score and interleave for the Fy feed.
type VideoPipeline struct {
	gate      *PerformanceGate
	scorer    *VideoScorer
	assembler Assembler
}

// NewVideoPipeline wires the video stages from cfg.
func NewVideoPipeline(cfg Config) *VideoPipeline {
	return &VideoPipeline{
		gate:      NewPerformanceGate(cfg.Gate),
		scorer:    NewVideoScorer(cfg),
		assembler: NewInterleaveAssembler(cfg.VideoAssembly),
	}
}

// Run ranks cands for the viewer described by p. HasLiked is filled from p.
func (vp *VideoPipeline) Run(cands []model.Candidate, p model.Profile, now time.Time) ([]model.ScoredCandidate, Stats) {
	kept, rejected := vp.gate.Filter(cands)
	out := vp.assembler.Assemble(vp.scorer.Rank(kept, now), p, now)

	st := Stats{Pool: len(cands), Rejected: len(rejected), Returned: len(out)}
	for i := range out {
		out[i].HasLiked = p.HasLiked(out[i].ID)
		if out[i].ActivelyPromoted(now) {
			st.Promoted++
		}
	}
	return out, st
}

// ProductPipeline runs score and score-order assembly for the smart feed.
type ProductPipeline struct {
	scorer    *ProductScorer
	assembler Assembler
}

// NewProductPipeline wires the product stages from cfg.
func NewProductPipeline(cfg Config, opts ...ProductOption) *ProductPipeline {
	return &ProductPipeline{
		scorer:    NewProductScorer(cfg, opts...),
		assembler: NewScoreOrderAssembler(cfg.ProductAssembly),
	}
}

// Run ranks products for p, weighting locality against region.
func (pp *ProductPipeline) Run(cands []model.Candidate, p model.Profile, region string, now time.Time) ([]model.ScoredCandidate, Stats) {
	out := pp.assembler.Assemble(pp.scorer.Rank(cands, p, region, now), p, now)

	st := Stats{Pool: len(cands), Returned: len(out)}
	for i := range out {
		if out[i].ActivelyPromoted(now) {
			st.Promoted++
		}
	}
	return out, st
}
