package dialog

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
)

const maxDishNameLen = 100

var (
	yesTokens = map[string]bool{"yes": true, "y": true, "yeah": true, "ok": true}
	noTokens  = map[string]bool{"no": true, "n": true, "nope": true}
)

func parseGender(text string) (entity.Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "m", "male":
		return entity.GenderMale, true
	case "f", "female":
		return entity.GenderFemale, true
	}
	return "", false
}

func parsePositiveInt(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// parsePositiveFloat accepts a decimal comma as well as a point.
func parsePositiveFloat(text string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

func activityValue(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseActivity(payload string) (float64, bool) {
	for _, f := range entity.ActivityFactors {
		if payload == activityValue(f) {
			return f, true
		}
	}
	return 0, false
}

func parseGoal(payload string) (entity.Goal, bool) {
	switch g := entity.Goal(payload); g {
	case entity.GoalLoss, entity.GoalMaintain, entity.GoalGain:
		return g, true
	}
	return "", false
}

// parseConfirmation returns (answer, ok).
func parseConfirmation(text string) (bool, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if yesTokens[t] {
		return true, true
	}
	if noTokens[t] {
		return false, true
	}
	return false, false
}

func parseDishName(text string) (string, bool) {
	name := entity.NormalizeDishName(text)
	if name == "" || utf8.RuneCountInString(name) > maxDishNameLen {
		return "", false
	}
	return name, true
}
