package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/dialog"
	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
	"github.com/oksasatya/kcal-diary-bot/internal/domain/repository"
)

var ErrUserNotFound = errors.New("user not found")

const historyDays = 30

type ProfileSummary struct {
	User       entity.User   `json:"user"`
	DailyNorm  float64       `json:"daily_norm"`
	TodayMeals []entity.Meal `json:"today_meals"`
	TodayKcal  float64       `json:"today_kcal"`
	Remaining  float64       `json:"remaining"`
}

type ProfileService struct {
	Users repository.UserRepository
	Meals repository.MealRepository
	now   func() time.Time
}

func NewProfileService(users repository.UserRepository, meals repository.MealRepository) *ProfileService {
	return &ProfileService{Users: users, Meals: meals, now: time.Now}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Summary computes the daily norm and today's (UTC) intake of a registered user.
func (s *ProfileService) Summary(ctx context.Context, userID int64) (ProfileSummary, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ProfileSummary{}, ErrUserNotFound
	}
	if err != nil {
		return ProfileSummary{}, fmt.Errorf("load user %d: %w", userID, err)
	}
	meals, err := s.Meals.ListByUser(ctx, userID, startOfDay(s.now()))
	if err != nil {
		return ProfileSummary{}, fmt.Errorf("list meals of %d: %w", userID, err)
	}

	sum := ProfileSummary{User: *u, DailyNorm: u.DailyNorm(), TodayMeals: meals}
	if sum.TodayMeals == nil {
		sum.TodayMeals = []entity.Meal{}
	}
	for _, m := range meals {
		sum.TodayKcal += m.Kcal
	}
	sum.Remaining = sum.DailyNorm - sum.TodayKcal
	return sum, nil
}

func (s *ProfileService) History(ctx context.Context, userID int64) ([]entity.DayTotal, error) {
	totals, err := s.Meals.DailyTotals(ctx, userID, historyDays)
	if err != nil {
		return nil, fmt.Errorf("daily totals of %d: %w", userID, err)
	}
	return totals, nil
}

func profilePrompt(sum ProfileSummary) dialog.Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Profile %s\nGoal: %s\nDaily calorie intake: %.0f\n\n",
		sum.User.DisplayName, sum.User.Goal.Label(), math.Round(sum.DailyNorm))
	if len(sum.TodayMeals) == 0 {
		b.WriteString("There are no food entries today yet. Press /add")
	} else {
		b.WriteString("Today meals:\n")
		for _, m := range sum.TodayMeals {
			fmt.Fprintf(&b, "- %s: %g g, %.1f kcal\n", m.DishName, m.Grams, m.Kcal)
		}
		fmt.Fprintf(&b, "\nThe remainder of the daily calorie intake: %.0f", math.Round(sum.Remaining))
	}
	return dialog.Prompt{Text: b.String(), Options: []dialog.Option{dialog.HistoryOption()}}
}

func historyPrompt(totals []entity.DayTotal) dialog.Prompt {
	if len(totals) == 0 {
		return dialog.Prompt{Text: "There are no food entries yet. Press /add."}
	}
	var b strings.Builder
	b.WriteString("History by days:\n\n")
	for _, d := range totals {
		fmt.Fprintf(&b, "%s: %.1f kcal\n", d.Day.Format("2006-01-02"), d.Kcal)
	}
	return dialog.Prompt{Text: strings.TrimRight(b.String(), "\n")}
}
