package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// cellTypeCodes maps well-known cell types to their short thaw-id codes.
// Anything else falls back to a prefix of the raw name.
var cellTypeCodes = map[string]string{
	"ipsc":          "iPSC",
	"fibroblast":    "FIBRO",
	"npc":           "NPC",
	"cardiomyocyte": "CARDIO",
	"hepatocyte":    "HEPATO",
	"endothelial":   "ENDO",
}

func operatorInitials(operator string) string {
	fields := strings.Fields(strings.TrimSpace(operator))
	switch {
	case len(fields) == 0:
		return ""
	case len(fields) == 1:
		word := fields[0]
		if len(word) == 1 {
			return strings.ToUpper(word)
		}
		return strings.ToUpper(word[:2])
	default:
		first := fields[0]
		last := fields[len(fields)-1]
		return strings.ToUpper(first[:1] + last[:1])
	}
}

func cellTypeCode(cellType string) string {
	trimmed := strings.TrimSpace(cellType)
	if trimmed == "" {
		return ""
	}
	if code, ok := cellTypeCodes[strings.ToLower(trimmed)]; ok {
		return code
	}
	if len(trimmed) > 5 {
		trimmed = trimmed[:5]
	}
	return strings.ToUpper(trimmed)
}

// GenerateThawID builds a unique lineage identifier for a thaw performed on
// the given date. The id embeds the date, operator initials and a cell type
// code when available, then a per-day sequence number so repeated thaws by
// the same operator stay distinct.
func GenerateThawID(ctx context.Context, store EventStore, date time.Time, operator, cellType string) (string, error) {
	prefix := "TH-" + date.Format("20060102")
	if initials := operatorInitials(operator); initials != "" {
		prefix += "-" + initials
	}
	if code := cellTypeCode(cellType); code != "" {
		prefix += "-" + code
	}

	count, err := store.CountSameDayThaws(ctx, date, prefix)
	if err != nil {
		return "", fmt.Errorf("count same-day thaws: %w", err)
	}
	return fmt.Sprintf("%s-%03d", prefix, count+1), nil
}
