// Package dialog holds the per-user conversation state machine.
//
// Transition is a pure function of (session, event). It never touches storage: whenever a
// step needs the outside world it returns an Effect, and the caller feeds the outcome back
// in as another event (see KindCalorieLookup).
package dialog

import (
	"time"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
)

type Step string

const (
	StepIdle Step = "idle"

	StepAwaitingGender   Step = "awaiting_gender"
	StepAwaitingAge      Step = "awaiting_age"
	StepAwaitingHeight   Step = "awaiting_height"
	StepAwaitingWeight   Step = "awaiting_weight"
	StepAwaitingActivity Step = "awaiting_activity"
	StepAwaitingGoal     Step = "awaiting_goal"
	StepCommitUser       Step = "commit_user"

	StepAwaitingPhotoOrName  Step = "awaiting_photo_or_name"
	StepAwaitingConfirmation Step = "awaiting_confirmation"
	StepAwaitingManualName   Step = "awaiting_manual_name"
	StepAwaitingGrams        Step = "awaiting_grams"
	StepResolvingCalories    Step = "resolving_calories"
	StepAwaitingManualKcal   Step = "awaiting_manual_kcal"
	StepCommitMeal           Step = "commit_meal"
)

// Terminal reports whether entering the step triggers a durable commit.
func (s Step) Terminal() bool {
	return s == StepCommitUser || s == StepCommitMeal
}

// Pending is the partial record collected across steps. It holds values only so that a
// Session copy never aliases another.
type Pending struct {
	DisplayName    string        `json:"display_name,omitempty"`
	Gender         entity.Gender `json:"gender,omitempty"`
	Age            int           `json:"age,omitempty"`
	HeightCm       float64       `json:"height_cm,omitempty"`
	WeightKg       float64       `json:"weight_kg,omitempty"`
	ActivityFactor float64       `json:"activity_factor,omitempty"`
	Goal           entity.Goal   `json:"goal,omitempty"`

	DishName    string  `json:"dish_name,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	Grams       float64 `json:"grams,omitempty"`
	KcalPer100g float64 `json:"kcal_per_100g,omitempty"`
	NewCalorie  bool    `json:"new_calorie,omitempty"`
}

type Session struct {
	UserID    int64     `json:"user_id"`
	Step      Step      `json:"step"`
	Pending   Pending   `json:"pending"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession returns the idle session of a user.
func NewSession(userID int64) Session {
	return Session{UserID: userID, Step: StepIdle}
}

func (s Session) Idle() bool { return s.Step == StepIdle || s.Step == "" }

// User builds the record committed at the end of registration.
func (s Session) User() entity.User {
	p := s.Pending
	return entity.User{
		ID:             s.UserID,
		DisplayName:    p.DisplayName,
		Gender:         p.Gender,
		Age:            p.Age,
		HeightCm:       p.HeightCm,
		WeightKg:       p.WeightKg,
		ActivityFactor: p.ActivityFactor,
		Goal:           p.Goal,
	}
}

// Meal builds the consumption event committed at the end of logging.
func (s Session) Meal(now time.Time) entity.Meal {
	p := s.Pending
	return entity.Meal{
		UserID:   s.UserID,
		DishName: p.DishName,
		Grams:    p.Grams,
		Kcal:     entity.MealKcal(p.KcalPer100g, p.Grams),
		EatenAt:  now,
	}
}

// Calorie returns the catalog entry the user typed in, or nil when the figure came from the
// catalog already.
func (s Session) Calorie() *entity.CalorieEntry {
	if !s.Pending.NewCalorie {
		return nil
	}
	return &entity.CalorieEntry{
		Name:        s.Pending.DishName,
		KcalPer100g: s.Pending.KcalPer100g,
		Source:      entity.SourceUser,
	}
}
