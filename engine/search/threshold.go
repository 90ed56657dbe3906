// Package search owns retrieval: the similarity threshold calculation, the
// strategy choice between vector search and filtered scanning, the store
// round trip, and result ranking.
package search

import "github.com/MotorMindAI/motormind-mvp/engine/domain"

// Config holds the retrieval tuning knobs.
type Config struct {
	// BaseThreshold is the similarity cutoff for an unconstrained question.
	BaseThreshold float32
	// ThresholdStep is subtracted per active filter field. Structured
	// filters carry intent that the embedding no longer has to express, so
	// the semantic cutoff relaxes as filters accumulate.
	ThresholdStep float32
	// ThresholdFloor is the lowest the cutoff may go.
	ThresholdFloor float32
	// CandidateLimit caps k-NN candidates fetched before post-filtering.
	CandidateLimit int
	// ScanLimit caps filtered-scan results.
	ScanLimit int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BaseThreshold:  0.50,
		ThresholdStep:  0.07,
		ThresholdFloor: 0.25,
		CandidateLimit: 50,
		ScanLimit:      100,
	}
}

// Threshold computes the similarity cutoff for a filter set. The result is
// clamped to [ThresholdFloor, BaseThreshold], so more filters never raise
// the cutoff.
func (c Config) Threshold(f domain.FilterSet) float32 {
	t := c.BaseThreshold - c.ThresholdStep*float32(f.FieldCount())
	if t < c.ThresholdFloor {
		t = c.ThresholdFloor
	}
	if t > c.BaseThreshold {
		t = c.BaseThreshold
	}
	return t
}
