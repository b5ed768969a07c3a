package service

import (
	"context"
	"time"

	"github.com/Siddhant-K-code/minelab/pkg/cache"
	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/history"
	"github.com/Siddhant-K-code/minelab/pkg/rules"
	"github.com/Siddhant-K-code/minelab/pkg/telemetry"
	"github.com/Siddhant-K-code/minelab/pkg/types"
	"github.com/Siddhant-K-code/minelab/pkg/validation"
)

type mineKey struct {
	Items         []types.Item `json:"items"`
	Total         int          `json:"total"`
	MinSupport    float64      `json:"minSupport"`
	MinConfidence float64      `json:"minConfidence"`
	Policy        string       `json:"policy"`
	Seed          int64        `json:"seed"`
}

// Mine derives pair rules over a catalogue or an inline item list.
func (s *Service) Mine(ctx context.Context, req MineRequest) (*MineResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	items, total, name := req.Items, req.TotalTransactions, ""
	if len(items) == 0 {
		name = req.Dataset
		if name == "" {
			name = s.cfg.Mining.Dataset
		}
		cat, err := s.catalogues.Get(name)
		if err != nil {
			return nil, err
		}
		items, total = cat.Items, cat.TotalTransactions
	}

	policy := req.CoOccurrence
	if policy == "" {
		policy = s.cfg.Mining.CoOccurrence
	}
	if policy == "" {
		policy = PolicySynthetic
	}
	seed := req.Seed
	if seed == 0 {
		seed = s.cfg.Mining.Seed
	}
	if seed == 0 {
		seed = rules.DefaultSeed
	}

	co, err := s.coOccurrence(policy, seed)
	if err != nil {
		return nil, err
	}

	key := mineKey{
		Items:         items,
		Total:         total,
		MinSupport:    s.threshold(req.MinSupport, s.cfg.Mining.MinSupport),
		MinConfidence: s.threshold(req.MinConfidence, s.cfg.Mining.MinConfidence),
		Policy:        policy,
		Seed:          seed,
	}
	if policy == PolicyTransactions {
		key.Seed = 0
	}

	res, hit, err := memo(ctx, s, cache.KindApriori, key, func() (*types.MiningResult, error) {
		return s.mine(ctx, rules.NewMiner(rules.Config{CoOccurrence: co}), items, total, key.MinSupport, key.MinConfidence, policy)
	})
	if err != nil {
		return nil, err
	}

	resp := &MineResponse{Result: res, Dataset: name, CoOccurrence: policy, Cached: hit}
	resp.RunID = s.record(ctx, history.KindApriori, key, miningSummary(res), res)
	return resp, nil
}

// MineTransactions scans raw baskets for measured pair rules and frequent
// itemsets.
func (s *Service) MineTransactions(ctx context.Context, req TransactionsRequest) (*TransactionsResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	minSupport := s.threshold(req.MinSupport, s.cfg.Mining.MinSupport)
	minConfidence := s.threshold(req.MinConfidence, s.cfg.Mining.MinConfidence)

	params := struct {
		Baskets       [][]string `json:"baskets"`
		MinSupport    float64    `json:"minSupport"`
		MinConfidence float64    `json:"minConfidence"`
		MaxSize       int        `json:"maxSize"`
	}{req.Baskets, minSupport, minConfidence, req.MaxSize}

	resp, hit, err := memo(ctx, s, cache.KindApriori, params, func() (*TransactionsResponse, error) {
		tx, err := rules.CountTransactions(req.Baskets)
		if err != nil {
			return nil, err
		}
		res, err := s.mine(ctx, rules.NewMiner(rules.Config{CoOccurrence: tx.Counts}), tx.Items, tx.Total, minSupport, minConfidence, PolicyTransactions)
		if err != nil {
			return nil, err
		}
		sets, err := rules.FrequentItemsets(req.Baskets, minSupport, req.MaxSize)
		if err != nil {
			return nil, err
		}
		return &TransactionsResponse{Result: res, Itemsets: sets}, nil
	})
	if err != nil {
		return nil, err
	}

	resp.Cached = hit
	summary := miningSummary(resp.Result)
	summary["baskets"] = float64(len(req.Baskets))
	summary["itemsets"] = float64(len(resp.Itemsets))
	resp.RunID = s.record(ctx, history.KindApriori, params, summary, resp)
	return resp, nil
}

func (s *Service) mine(ctx context.Context, m *rules.Miner, items []types.Item, total int, minSupport, minConfidence float64, policy string) (*types.MiningResult, error) {
	_, span := s.tracer.StartMining(ctx, len(items), minSupport, minConfidence, policy)
	start := time.Now()
	res, err := m.Mine(items, total, minSupport, minConfidence)
	if err == nil {
		telemetry.RecordMiningResult(span, res)
		if s.metrics != nil {
			byStrength := make(map[string]int)
			for _, r := range res.Rules {
				byStrength[string(r.Strength)]++
			}
			s.metrics.RecordMining(s.host, res.Summary.CandidatePairs, byStrength)
		}
	}
	finish(span, start, err)
	return res, err
}

func (s *Service) coOccurrence(policy string, seed int64) (rules.CoOccurrence, error) {
	switch policy {
	case PolicySynthetic:
		return rules.NewSynthetic(seed), nil
	case PolicyTransactions:
		if s.transactions == nil {
			return nil, errors.InvalidParameter("coOccurrence", "no transactions file is configured")
		}
		return s.transactions.Counts, nil
	}
	return nil, errors.InvalidParameter("coOccurrence", "unsupported policy %q (supported: synthetic, transactions)", policy)
}

func (s *Service) threshold(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}

func miningSummary(res *types.MiningResult) map[string]float64 {
	return map[string]float64{
		"pairs":          float64(len(res.Pairs)),
		"rules":          float64(res.Summary.Rules),
		"avgSupport":     res.Summary.AvgSupport,
		"avgConfidence":  res.Summary.AvgConfidence,
		"avgLift":        res.Summary.AvgLift,
		"maxLift":        res.Summary.MaxLift,
		"candidatePairs": float64(res.Summary.CandidatePairs),
	}
}
