package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Stage steps form a linear 1..7 progression. The compound etape field
// stores the step digit followed by a free-text label with no guaranteed
// separator ("5 Installation" and "5Installation" are both valid).
const (
	StageContact      = 1
	StageDocuments    = 2
	StageInstruction  = 3
	StageAcceptance   = 4
	StageInstallation = 5
	StageControl      = 6
	StageClosed       = 7
)

var stageLabels = map[int]string{
	StageContact:      "Prise de contact",
	StageDocuments:    "En attente des documents",
	StageInstruction:  "Instruction du dossier",
	StageAcceptance:   "Dossier accepté",
	StageInstallation: "Installation",
	StageControl:      "Contrôle",
	StageClosed:       "Dossier clôturé",
}

// StageLabel returns the canonical label for a step, or the step 1 label
// for out-of-range values.
func StageLabel(step int) string {
	if label, ok := stageLabels[step]; ok {
		return label
	}
	return stageLabels[StageContact]
}

// ParseStage splits a compound stage code into its numeric step and label.
// The leading digits form the step; the trimmed remainder is the label.
// Malformed input never fails: a missing or out-of-range step defaults to 1
// and an empty label falls back to the canonical label for the step.
func ParseStage(raw string) (int, string) {
	s := strings.TrimSpace(raw)

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}

	step := StageContact
	if i > 0 {
		if n, err := strconv.Atoi(s[:i]); err == nil && n >= StageContact && n <= StageClosed {
			step = n
		}
	}

	label := strings.TrimSpace(s[i:])
	if label == "" {
		label = StageLabel(step)
	}

	return step, label
}

// FormatStage renders a step and label for display
func FormatStage(step int, label string) string {
	return fmt.Sprintf("Étape %d - %s", step, label)
}
