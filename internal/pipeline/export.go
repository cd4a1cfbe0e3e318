package pipeline

import (
	"encoding/json"
	"fmt"
	"math"

	"phenotrace/internal/stats"
)

// featurePayload is the persistence-boundary view of a Result. Non-finite
// values are substituted here and only here; intermediate maps keep their
// NaNs.
type featurePayload struct {
	RunID            string             `json:"run_id"`
	Species          string             `json:"species"`
	Date             string             `json:"date"`
	PlantID          string             `json:"plant_id"`
	VegFeatures      map[string]float64 `json:"vegetation_features"`
	TextureFeatures  map[string]float64 `json:"texture_features"`
	SizeTraits       map[string]float64 `json:"size_traits"`
	MorphologyTraits map[string]any     `json:"morphology_traits"`
	SkippedIndices   []string           `json:"skipped_indices,omitempty"`
	StageErrors      map[string]string  `json:"stage_errors,omitempty"`
	Warnings         []string           `json:"warnings,omitempty"`
}

// ExportJSON serializes the run's feature records and traits, replacing
// NaN and infinite values with the placeholder.
func (res *Result) ExportJSON(placeholder float64) ([]byte, error) {
	payload := featurePayload{
		RunID:            res.RunID.String(),
		Species:          res.Identity.Species,
		Date:             res.Identity.Date,
		PlantID:          res.Identity.PlantID,
		VegFeatures:      sanitizeRecord(res.VegFeatures, placeholder),
		TextureFeatures:  sanitizeRecord(res.TextureFeatures, placeholder),
		SizeTraits:       map[string]float64{},
		MorphologyTraits: map[string]any{},
		SkippedIndices:   res.SkippedIndices,
		Warnings:         res.Warnings,
	}
	if res.Traits != nil {
		payload.SizeTraits = sanitizeRecord(res.Traits.SizeTraits, placeholder)
		for name, v := range res.Traits.MorphologyTraits {
			if f, ok := v.(float64); ok {
				payload.MorphologyTraits[name] = finite(f, placeholder)
			} else {
				payload.MorphologyTraits[name] = v
			}
		}
		if len(res.Traits.StageErrors) > 0 {
			payload.StageErrors = map[string]string{}
			for stage, err := range res.Traits.StageErrors {
				payload.StageErrors[stage] = err.Error()
			}
		}
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding features: %w", err)
	}
	return data, nil
}

func sanitizeRecord(rec stats.Record, placeholder float64) map[string]float64 {
	out := make(map[string]float64, len(rec))
	for k, v := range rec {
		out[k] = finite(v, placeholder)
	}
	return out
}

func finite(v, placeholder float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return placeholder
	}
	return v
}
