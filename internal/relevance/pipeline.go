package relevance

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/ocean-news/internal/metrics"
	"github.com/JakeFAU/ocean-news/internal/news"
)

// Config bounds the classifier stage.
type Config struct {
	// MaxUncached caps how many uncached items are sent to the classifier per run.
	MaxUncached int
	// BatchSize is the number of items per classifier call.
	BatchSize int
	// MinScore is the inclusive score threshold for a relevant verdict.
	MinScore int
	// BackfillCap is the combined output cap when rate limiting truncates the stage.
	BackfillCap int
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{MaxUncached: 15, BatchSize: 5, MinScore: 8, BackfillCap: 20}
}

// Pipeline runs the three filter stages. A nil classifier reduces the AI stage
// to a pass-through of the keyword output.
type Pipeline struct {
	cfg        Config
	classifier Classifier
	decisions  *DecisionCache
	pacer      Pacer
	logger     *zap.Logger
}

// NewPipeline wires the stages together.
func NewPipeline(cfg Config, classifier Classifier, decisions *DecisionCache, pacer Pacer, logger *zap.Logger) *Pipeline {
	def := DefaultConfig()
	if cfg.MaxUncached <= 0 {
		cfg.MaxUncached = def.MaxUncached
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = def.MinScore
	}
	if cfg.BackfillCap <= 0 {
		cfg.BackfillCap = def.BackfillCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:        cfg,
		classifier: classifier,
		decisions:  decisions,
		pacer:      pacer,
		logger:     logger,
	}
}

// Apply runs keyword pre-filter, classification and the safety net.
func (p *Pipeline) Apply(ctx context.Context, items []news.Item) []news.Item {
	pre := PreFilter(items)
	metrics.ObserveFiltered("keyword", len(items)-len(pre))

	classified := p.classify(ctx, pre)
	metrics.ObserveFiltered("classifier", len(pre)-len(classified))

	out := p.Screen(classified)
	p.logger.Info("relevance filter complete",
		zap.Int("candidates", len(items)),
		zap.Int("keyword_matches", len(pre)),
		zap.Int("classified_relevant", len(classified)),
		zap.Int("accepted", len(out)),
	)
	return out
}

// Screen applies only the safety net.
func (p *Pipeline) Screen(items []news.Item) []news.Item {
	out := SafetyNet(items)
	metrics.ObserveFiltered("safety_net", len(items)-len(out))
	return out
}

type decision int

const (
	undecided decision = iota
	accepted
	rejected
)

func (p *Pipeline) classify(ctx context.Context, pre []news.Item) []news.Item {
	if p.classifier == nil || len(pre) == 0 {
		return pre
	}

	decisions := make([]decision, len(pre))
	var uncached []int
	for i, item := range pre {
		if p.decisions == nil {
			uncached = append(uncached, i)
			continue
		}
		relevant, ok := p.decisions.Get(item)
		switch {
		case !ok:
			uncached = append(uncached, i)
		case relevant:
			decisions[i] = accepted
		default:
			decisions[i] = rejected
		}
	}
	if len(uncached) > p.cfg.MaxUncached {
		p.logger.Debug("classifier batch capped",
			zap.Int("uncached", len(uncached)),
			zap.Int("cap", p.cfg.MaxUncached),
		)
		uncached = uncached[:p.cfg.MaxUncached]
	}

	for start := 0; start < len(uncached); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(uncached))
		batchIdx := uncached[start:end]

		if p.pacer != nil {
			if err := p.pacer.Wait(ctx); err != nil {
				p.logger.Warn("classifier pacing interrupted; keeping keyword output", zap.Error(err))
				return pre
			}
		}

		batch := make([]news.Item, len(batchIdx))
		for i, idx := range batchIdx {
			batch[i] = pre[idx]
		}
		verdicts, err := p.classifier.Classify(ctx, batch)
		if errors.Is(err, ErrRateLimited) {
			metrics.ObserveClassifierBatch("rate_limited")
			p.logger.Warn("classifier rate limited; backfilling from keyword output",
				zap.Int("batch_start", start),
				zap.Error(err),
			)
			return p.backfill(pre, decisions)
		}
		if err != nil {
			metrics.ObserveClassifierBatch("error")
			p.logger.Warn("classifier failed; skipping AI stage", zap.Error(err))
			return pre
		}
		metrics.ObserveClassifierBatch("ok")
		p.applyVerdicts(pre, batchIdx, verdicts, decisions)
	}

	out := make([]news.Item, 0, len(pre))
	for i, item := range pre {
		if decisions[i] == accepted {
			out = append(out, item)
		}
	}
	return out
}

func (p *Pipeline) applyVerdicts(pre []news.Item, batchIdx []int, verdicts []Verdict, decisions []decision) {
	for _, v := range verdicts {
		if v.Index < 1 || v.Index > len(batchIdx) {
			p.logger.Debug("classifier verdict index out of range", zap.Int("index", v.Index))
			continue
		}
		idx := batchIdx[v.Index-1]
		relevant := v.Relevant && v.Score >= p.cfg.MinScore
		if relevant {
			decisions[idx] = accepted
		} else {
			decisions[idx] = rejected
		}
		if p.decisions != nil {
			p.decisions.Put(pre[idx], relevant)
		}
		p.logger.Debug("classifier verdict",
			zap.String("title", pre[idx].Title),
			zap.Bool("relevant", relevant),
			zap.Int("score", v.Score),
			zap.String("reason", v.Reason),
		)
	}
}

// backfill returns everything accepted so far followed by still-undecided
// keyword matches, up to BackfillCap items in pre-filter order.
func (p *Pipeline) backfill(pre []news.Item, decisions []decision) []news.Item {
	out := make([]news.Item, 0, p.cfg.BackfillCap)
	for i, item := range pre {
		if decisions[i] == accepted {
			out = append(out, item)
		}
	}
	for i, item := range pre {
		if len(out) >= p.cfg.BackfillCap {
			break
		}
		if decisions[i] == undecided {
			out = append(out, item)
		}
	}
	if len(out) > p.cfg.BackfillCap {
		out = out[:p.cfg.BackfillCap]
	}
	return out
}
