package types

import "time"

// Item is a catalogue entry with its transaction count.
type Item struct {
	// Name is the unique key of the item
	Name string `json:"name" yaml:"name" toml:"name"`

	// Count is the number of transactions containing the item
	Count int `json:"count" yaml:"count" toml:"count"`

	// Color and Emoji are display metadata, never read by the miner
	Color string `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty"`
	Emoji string `json:"emoji,omitempty" yaml:"emoji,omitempty" toml:"emoji,omitempty"`
}

// Catalogue is a named item set with its transaction total.
type Catalogue struct {
	Name              string `json:"name" yaml:"name" toml:"name"`
	TotalTransactions int    `json:"totalTransactions" yaml:"total_transactions" toml:"total_transactions"`
	Items             []Item `json:"items" yaml:"items" toml:"items"`
}

// PairStat is the co-occurrence of one unordered item pair.
type PairStat struct {
	ItemA        string  `json:"itemA"`
	ItemB        string  `json:"itemB"`
	CoOccurrence int     `json:"coOccurrence"`
	Support      float64 `json:"support"`
}

// Strength labels a rule by its confidence.
type Strength string

const (
	StrengthStrong Strength = "strong"
	StrengthMedium Strength = "medium"
	StrengthWeak   Strength = "weak"
)

// AssociationRule is a directional rule Antecedent -> Consequent.
type AssociationRule struct {
	ID         string   `json:"id"`
	Antecedent string   `json:"antecedent"`
	Consequent string   `json:"consequent"`
	Support    float64  `json:"support"`
	Confidence float64  `json:"confidence"`
	Lift       float64  `json:"lift"`
	Strength   Strength `json:"strength"`
}

// MiningSummary aggregates the retained rules.
type MiningSummary struct {
	Rules          int     `json:"rules"`
	AvgSupport     float64 `json:"avgSupport"`
	AvgConfidence  float64 `json:"avgConfidence"`
	AvgLift        float64 `json:"avgLift"`
	MaxLift        float64 `json:"maxLift"`
	FrequentItems  int     `json:"frequentItems"`
	CandidatePairs int     `json:"candidatePairs"`
}

// MiningResult holds the output of one mining invocation.
type MiningResult struct {
	Pairs   []PairStat        `json:"pairs"`
	Rules   []AssociationRule `json:"rules"`
	Summary MiningSummary     `json:"summary"`
	Latency time.Duration     `json:"latencyNs"`
}

// Itemset is a frequent itemset found by a transaction scan.
type Itemset struct {
	Items   []string `json:"items"`
	Count   int      `json:"count"`
	Support float64  `json:"support"`
}

// Size returns the number of items in the set.
func (s Itemset) Size() int {
	return len(s.Items)
}
