package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/randolphmevaa/ecologyb-sub009/model"
)

// StepUnknown is the tally bucket for dossiers whose etape field has no
// usable step digit. Bucketing instead of dropping keeps the counts summing
// to the number of records.
const StepUnknown = "N/A"

// Stats summarizes a dossier list for the dashboard header cards
type Stats struct {
	CountByStep    map[string]int `json:"countByStep"`
	TotalValue     float64        `json:"totalValue"`
	CompletionRate int            `json:"completionRate"`
}

// Aggregate computes summary statistics over a dossier list. Pure function
// of its input: malformed stage codes bucket under N/A and unparseable
// prices contribute zero, so bad data can never fail the whole dashboard.
func Aggregate(dossiers []model.Dossier) Stats {
	stats := Stats{CountByStep: make(map[string]int)}

	completed := 0
	for _, d := range dossiers {
		stats.CountByStep[stepBucket(d.Etape)]++
		stats.TotalValue += ParsePrice(d.Prix)

		step, _ := model.ParseStage(d.Etape)
		if step == model.StageClosed || d.Statut == model.StatutDone {
			completed++
		}
	}

	if len(dossiers) > 0 {
		stats.CompletionRate = int(math.Round(float64(completed) / float64(len(dossiers)) * 100))
	}

	return stats
}

// stepBucket keys the tally by the first character of the stage code
func stepBucket(etape string) string {
	s := strings.TrimSpace(etape)
	if len(s) > 0 && s[0] >= '1' && s[0] <= '7' {
		return s[:1]
	}
	return StepUnknown
}

// ParsePrice parses a stored price that may carry a currency glyph or
// thousands spacing ("1200€", "1 200,50 €"). Failure yields 0, never an
// error.
func ParsePrice(raw string) float64 {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		case r == '-':
			b.WriteRune(r)
		}
	}

	value, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return value
}
