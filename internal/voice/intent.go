package voice

import (
	"github.com/kmajors/hotstreak/internal/scoring"
)

// MinConfidence is the floor below which a classification is ignored.
const MinConfidence = 0.5

// ActionUnknown is the classifier's token for an unrecognized transcript.
const ActionUnknown = "unknown"

// Interpret maps a classification to a gameplay command. It returns false
// when the verdict should be ignored: low confidence, the unknown token, or
// an action outside the known set.
func Interpret(c *Classification) (scoring.Command, bool) {
	if c == nil || c.Confidence < MinConfidence || c.Action == ActionUnknown {
		return scoring.Command{}, false
	}

	t := scoring.CommandType(c.Action)
	if !scoring.IsKnownCommand(t) {
		return scoring.Command{}, false
	}
	return scoring.Command{Type: t}, true
}
