package dialog

import "strings"

type Kind string

const (
	KindText      Kind = "text"
	KindSelection Kind = "selection"
	KindPhoto     Kind = "photo"
	KindCommand   Kind = "command"
	// KindCalorieLookup carries the outcome of EffectResolveCalories back into the machine.
	KindCalorieLookup Kind = "calorie_lookup"
)

const (
	CommandStart   = "start"
	CommandAdd     = "add"
	CommandCancel  = "cancel"
	CommandProfile = "profile"
	CommandHelp    = "help"
	CommandInfo    = "info"
)

// ConfidenceThreshold is the lowest accepted top-1 confidence, in percent.
const ConfidenceThreshold = 50.0

type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type Event struct {
	UserID      int64
	DisplayName string
	Kind        Kind
	// Text is the message text, the selected option value or the command name.
	Text        string
	Predictions []Prediction

	Kcal  float64
	Found bool
}

// Command returns the lowercased command name without the leading slash or bot suffix.
func (e Event) Command() string {
	c := strings.TrimSpace(e.Text)
	c = strings.TrimPrefix(c, "/")
	if i := strings.IndexAny(c, "@ "); i >= 0 {
		c = c[:i]
	}
	return strings.ToLower(c)
}

// LookupEvent wraps a calorie cache read for the machine.
func LookupEvent(userID int64, kcal float64, found bool) Event {
	return Event{UserID: userID, Kind: KindCalorieLookup, Kcal: kcal, Found: found}
}

// TopPrediction returns the best prediction when it is usable. An empty list, a blank label
// or a confidence under ConfidenceThreshold all count as no prediction.
func TopPrediction(preds []Prediction) (Prediction, bool) {
	if len(preds) == 0 {
		return Prediction{}, false
	}
	top := preds[0]
	if strings.TrimSpace(top.Label) == "" || top.Confidence < ConfidenceThreshold {
		return Prediction{}, false
	}
	return top, true
}
