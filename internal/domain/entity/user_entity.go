package entity

import (
	"time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type Goal string

const (
	GoalLoss     Goal = "loss"
	GoalMaintain Goal = "maintain"
	GoalGain     Goal = "gain"
)

// Label is the human readable goal name shown on keyboards and in the profile.
func (g Goal) Label() string {
	switch g {
	case GoalLoss:
		return "Weight loss"
	case GoalMaintain:
		return "Maintaining weight"
	case GoalGain:
		return "Mass gain"
	}
	return string(g)
}

// Factor scales the maintenance calories for the goal.
func (g Goal) Factor() float64 {
	switch g {
	case GoalLoss:
		return 0.85
	case GoalGain:
		return 1.15
	}
	return 1
}

// ActivityFactors are the only accepted activity multipliers, lowest first.
var ActivityFactors = []float64{1.2, 1.375, 1.55, 1.725, 1.9}

// User is the aggregate root for a registered person.
// ID is the identity assigned by the chat transport; a user is written once and never updated.
type User struct {
	ID             int64   `validate:"required"`
	DisplayName    string  `validate:"max=255"`
	Gender         Gender  `validate:"required,oneof=male female"`
	Age            int     `validate:"gt=0"`
	HeightCm       float64 `validate:"gt=0"`
	WeightKg       float64 `validate:"gt=0"`
	ActivityFactor float64 `validate:"activity"`
	Goal           Goal    `validate:"required,oneof=loss maintain gain"`
	CreatedAt      time.Time
}

// DailyNorm returns the daily calorie budget (Mifflin-St Jeor, scaled by activity and goal).
func (u *User) DailyNorm() float64 {
	base := 10*u.WeightKg + 6.25*u.HeightCm - 5*float64(u.Age)
	if u.Gender == GenderMale {
		base += 5
	} else {
		base -= 161
	}
	return base * u.ActivityFactor * u.Goal.Factor()
}
