package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDishName(t *testing.T) {
	cases := map[string]string{
		"pizza":          "Pizza",
		"Pizza":          "Pizza",
		"PIZZA":          "Pizza",
		"apple_pie":      "Apple pie",
		"  Apple   PIE ": "Apple pie",
		"eggs_benedict\t": "Eggs benedict",
		"щи":             "Щи",
		"":               "",
		" _ ":            "",
	}
	for in, want := range cases {
		got := NormalizeDishName(in)
		assert.Equal(t, want, got, "input %q", in)
		assert.Equal(t, got, NormalizeDishName(got), "not idempotent for %q", in)
	}
}

func TestMealKcal(t *testing.T) {
	assert.Equal(t, 300.0, MealKcal(120, 250))
	assert.Equal(t, 0.5, MealKcal(1, 50))
}

func TestDailyNorm(t *testing.T) {
	u := User{Gender: GenderMale, Age: 30, HeightCm: 180, WeightKg: 80, ActivityFactor: 1.2, Goal: GoalMaintain}
	// (800 + 1125 - 150 + 5) * 1.2
	assert.InDelta(t, 2136.0, u.DailyNorm(), 1e-9)

	u = User{Gender: GenderFemale, Age: 30, HeightCm: 165, WeightKg: 60, ActivityFactor: 1.375, Goal: GoalLoss}
	// (600 + 1031.25 - 150 - 161) * 1.375 * 0.85
	assert.InDelta(t, 1320.25*1.375*0.85, u.DailyNorm(), 1e-9)
}
