package entity

import "time"

// Meal is one consumption event. Meals are append-only.
type Meal struct {
	ID       int64
	UserID   int64   `validate:"required"`
	DishName string  `validate:"required,max=100"`
	Grams    float64 `validate:"gt=0"`
	Kcal     float64 `validate:"gte=0"`
	EatenAt  time.Time
}

// MealKcal scales the energy density linearly to the portion size. No rounding is applied.
func MealKcal(kcalPer100g, grams float64) float64 {
	return kcalPer100g * grams / 100
}

// DayTotal is the calorie sum of one calendar day.
type DayTotal struct {
	Day  time.Time
	Kcal float64
}
