package analysis

import (
	"math"
	"strings"
)

// ExtractFeatures turns a raw contract record into the fixed feature vector
// and the cleaned description text. It is a total function: missing inputs
// fall back to defaults and it never fails.
func ExtractFeatures(record ContractRecord, stats EntityStatsMap) (FeatureVector, string) {
	description := strings.TrimSpace(record.Description)
	if description == "" {
		description = "Sin descripción"
	}

	entityStats := stats.Lookup(record.EntityID)

	std := entityStats.Std
	if std <= 0 {
		std = 1.0
	}

	value := record.Value
	if value < 0 {
		value = 0
	}

	year := record.SigningYear
	if year == 0 {
		year = 2025
	}
	month := record.SigningMonth
	if month == 0 {
		month = 1
	}

	fv := FeatureVector{
		ZScoreValue:        (value - entityStats.Mean) / std,
		LogValue:           math.Log(value + 1),
		CostPerChar:        value / float64(len(description)+1),
		ProviderDependency: record.ProviderDependency,
		PctTimeExtension:   0, // reserved for execution-extension data
		DurationDays:       record.DurationDays,
		DaysSinceSigning:   0, // reserved for signing-lag data
		SigningYear:        float64(year),
		SigningMonth:       float64(month),
	}

	return fv, description
}
