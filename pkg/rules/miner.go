// Package rules derives pairwise association rules from item catalogues.
package rules

import (
	"fmt"
	"time"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	kmath "github.com/Siddhant-K-code/minelab/pkg/math"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

const (
	// ConfidenceFloor drops negligible rules before threshold filtering.
	ConfidenceFloor = 0.1

	strongAbove = 0.75
	mediumAbove = 0.45
)

// DefaultSeed drives the synthetic co-occurrence policy.
const DefaultSeed int64 = 1

// Config holds mining parameters.
type Config struct {
	// CoOccurrence supplies pair counts. Default: Synthetic seeded with DefaultSeed
	CoOccurrence CoOccurrence

	// MinSupport and MinConfidence are the host defaults. Default: 0.1 and 0.6
	MinSupport    float64
	MinConfidence float64
}

// DefaultConfig returns sensible defaults for mining.
func DefaultConfig() Config {
	return Config{
		CoOccurrence:  NewSynthetic(DefaultSeed),
		MinSupport:    0.1,
		MinConfidence: 0.6,
	}
}

// Miner generates directional pair rules.
type Miner struct {
	cfg Config
}

// NewMiner creates a miner with the given config.
func NewMiner(cfg Config) *Miner {
	if cfg.CoOccurrence == nil {
		cfg.CoOccurrence = NewSynthetic(DefaultSeed)
	}
	return &Miner{cfg: cfg}
}

// Config returns the effective configuration.
func (m *Miner) Config() Config {
	return m.cfg
}

// WithCoOccurrence returns a miner sharing this config but reading pair counts from c.
func (m *Miner) WithCoOccurrence(c CoOccurrence) *Miner {
	cfg := m.cfg
	cfg.CoOccurrence = c
	return NewMiner(cfg)
}

// Mine derives pair statistics and rules for items over totalTransactions.
// Pairs are returned when support >= minSupport; rules additionally need
// confidence >= minConfidence. Empty outputs are not an error.
func (m *Miner) Mine(items []types.Item, totalTransactions int, minSupport, minConfidence float64) (*types.MiningResult, error) {
	if err := validate(items, totalTransactions, minSupport, minConfidence); err != nil {
		return nil, err
	}

	start := time.Now()
	total := float64(totalTransactions)

	pairs := make([]types.PairStat, 0)
	rules := make([]types.AssociationRule, 0)
	candidates := 0

	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i], items[j]
			candidates++

			co, err := m.cfg.CoOccurrence.CoOccurrence(a, b)
			if err != nil {
				return nil, errors.Wrapf(err, "co-occurrence %s/%s", a.Name, b.Name)
			}
			if hi := minInt(a.Count, b.Count); co < 0 || co > hi {
				return nil, errors.Computation("co-occurrence",
					"pair %s/%s count %d outside [0, %d]", a.Name, b.Name, co, hi)
			}

			support := float64(co) / total
			if support >= minSupport {
				pairs = append(pairs, types.PairStat{
					ItemA:        a.Name,
					ItemB:        b.Name,
					CoOccurrence: co,
					Support:      support,
				})
			}

			for _, dir := range [2][2]types.Item{{a, b}, {b, a}} {
				rule, ok := derive(dir[0], dir[1], co, support, total)
				if !ok {
					continue
				}
				if rule.Support >= minSupport && rule.Confidence >= minConfidence {
					rules = append(rules, rule)
				}
			}
		}
	}

	summary := summarize(rules)
	summary.CandidatePairs = candidates
	for _, it := range items {
		if float64(it.Count)/total >= minSupport {
			summary.FrequentItems++
		}
	}
	if !kmath.AllFinite([]float64{summary.AvgSupport, summary.AvgConfidence, summary.AvgLift, summary.MaxLift}) {
		return nil, errors.Computation("summary", "non-finite rule metrics")
	}

	return &types.MiningResult{
		Pairs:   pairs,
		Rules:   rules,
		Summary: summary,
		Latency: time.Since(start),
	}, nil
}

// derive builds source -> target. ok is false below ConfidenceFloor.
func derive(source, target types.Item, co int, support, total float64) (types.AssociationRule, bool) {
	if source.Count == 0 || co == 0 {
		return types.AssociationRule{}, false
	}
	confidence := float64(co) / float64(source.Count)
	if confidence < ConfidenceFloor {
		return types.AssociationRule{}, false
	}

	return types.AssociationRule{
		ID:         RuleID(source.Name, target.Name),
		Antecedent: source.Name,
		Consequent: target.Name,
		Support:    support,
		Confidence: confidence,
		Lift:       confidence / (float64(target.Count) / total),
		Strength:   StrengthOf(confidence),
	}, true
}

// RuleID names the rule antecedent -> consequent.
func RuleID(antecedent, consequent string) string {
	return fmt.Sprintf("r-%s-%s", antecedent, consequent)
}

// StrengthOf labels a confidence value.
func StrengthOf(confidence float64) types.Strength {
	switch {
	case confidence > strongAbove:
		return types.StrengthStrong
	case confidence > mediumAbove:
		return types.StrengthMedium
	default:
		return types.StrengthWeak
	}
}

func summarize(rules []types.AssociationRule) types.MiningSummary {
	s := types.MiningSummary{Rules: len(rules)}
	if len(rules) == 0 {
		return s
	}
	for i, r := range rules {
		s.AvgSupport += r.Support
		s.AvgConfidence += r.Confidence
		s.AvgLift += r.Lift
		if i == 0 || r.Lift > s.MaxLift {
			s.MaxLift = r.Lift
		}
	}
	n := float64(len(rules))
	s.AvgSupport /= n
	s.AvgConfidence /= n
	s.AvgLift /= n
	return s
}

func validate(items []types.Item, totalTransactions int, minSupport, minConfidence float64) error {
	if totalTransactions <= 0 {
		return errors.InvalidParameter("totalTransactions", "must be > 0, got %d", totalTransactions)
	}
	if !(minSupport >= 0 && minSupport <= 1) {
		return errors.InvalidParameter("minSupport", "must be in [0, 1], got %v", minSupport)
	}
	if !(minConfidence >= 0 && minConfidence <= 1) {
		return errors.InvalidParameter("minConfidence", "must be in [0, 1], got %v", minConfidence)
	}

	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if it.Name == "" {
			return errors.InvalidParameter("items", "item %d has an empty name", i)
		}
		if _, dup := seen[it.Name]; dup {
			return errors.InvalidParameter("items", "duplicate item %q", it.Name)
		}
		seen[it.Name] = struct{}{}

		if it.Count < 0 {
			return errors.InvalidParameter("items", "item %q has negative count %d", it.Name, it.Count)
		}
		if it.Count > totalTransactions {
			return errors.InvalidParameter("items",
				"item %q count %d exceeds totalTransactions %d", it.Name, it.Count, totalTransactions)
		}
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
