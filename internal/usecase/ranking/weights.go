package ranking

import (
	"errors"
	"fmt"
)

// Weights are the scoring constants of the ranker. Their relative order is
// load-bearing: exact slug > exact id > exact title > fuzzy title > content.
type Weights struct {
	Similarity         float64 `yaml:"similarity"`
	ExactSlug          float64 `yaml:"exact_slug"`
	FuzzySlug          float64 `yaml:"fuzzy_slug"`
	ExactID            float64 `yaml:"exact_id"`
	FuzzyID            float64 `yaml:"fuzzy_id"`
	ExactTitle         float64 `yaml:"exact_title"`
	TitleRatio         float64 `yaml:"title_ratio"`
	TitleOverlap       float64 `yaml:"title_overlap"`
	Content            float64 `yaml:"content"`
	ContentBonus       float64 `yaml:"content_bonus"`
	ContentBonusMinLen int     `yaml:"content_bonus_min_len"`
}

// DefaultWeights returns the tuned production weights.
func DefaultWeights() Weights {
	return Weights{
		Similarity:         100,
		ExactSlug:          1000,
		FuzzySlug:          8,
		ExactID:            900,
		FuzzyID:            7,
		ExactTitle:         500,
		TitleRatio:         300,
		TitleOverlap:       100,
		Content:            50,
		ContentBonus:       20,
		ContentBonusMinLen: 100,
	}
}

// Validate checks signs and the precedence of the exact and fuzzy signals.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"similarity":    w.Similarity,
		"exact_slug":    w.ExactSlug,
		"fuzzy_slug":    w.FuzzySlug,
		"exact_id":      w.ExactID,
		"fuzzy_id":      w.FuzzyID,
		"exact_title":   w.ExactTitle,
		"title_ratio":   w.TitleRatio,
		"title_overlap": w.TitleOverlap,
		"content":       w.Content,
		"content_bonus": w.ContentBonus,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative, got %g", name, v)
		}
	}
	if w.ContentBonusMinLen < 0 {
		return errors.New("weight content_bonus_min_len must not be negative")
	}

	switch {
	case w.ExactSlug <= w.ExactID:
		return fmt.Errorf("exact_slug (%g) must exceed exact_id (%g)", w.ExactSlug, w.ExactID)
	case w.ExactID <= w.ExactTitle:
		return fmt.Errorf("exact_id (%g) must exceed exact_title (%g)", w.ExactID, w.ExactTitle)
	case w.ExactTitle <= w.TitleRatio:
		return fmt.Errorf("exact_title (%g) must exceed title_ratio (%g)", w.ExactTitle, w.TitleRatio)
	case w.TitleRatio <= w.Content:
		return fmt.Errorf("title_ratio (%g) must exceed content (%g)", w.TitleRatio, w.Content)
	}
	return nil
}

// ceiling bounds the raw score any record can reach.
func (w Weights) ceiling() float64 {
	return w.Similarity +
		max(w.ExactSlug, 100*w.FuzzySlug) +
		max(w.ExactID, 100*w.FuzzyID) +
		max(w.ExactTitle, w.TitleRatio+w.TitleOverlap) +
		w.Content + w.ContentBonus
}
