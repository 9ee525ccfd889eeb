package dialog

import (
	"fmt"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
)

// Option is one button of a fixed-option keyboard. Value comes back as a selection event.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Prompt is the outbound instruction. Rendering is left to the transport.
type Prompt struct {
	Text    string   `json:"text"`
	Options []Option `json:"options,omitempty"`
}

const SelectionHistory = "history_by_days"

const (
	textWelcome = "Welcome to Food Classifier Bot!\n\n" +
		"I can recognize dishes from a photo and keep track of your daily calories.\n\n" +
		"But you need to register first. Please indicate gender (m/f):"
	textIdle = "Food Classifier Bot\n\n" +
		"Use /add to log a meal, /profile to see today's calories or /help for help."

	textCancelled    = "Action cancelled."
	textNothingToEnd = "You are not in the process of filling out the form."

	textAskGender    = "Please indicate gender (m/f):"
	textAskAge       = "Your full age:"
	textAskHeight    = "Your height in centimeters:"
	textAskWeight    = "Your weight in kilograms:"
	textAskActivity  = "Please select your approximate level of physical activity:"
	textAskGoal      = "Your goal:"
	textBadGender    = "Please enter 'm' or 'f'."
	textBadAge       = "Please enter a valid number for age (e.g. 20)."
	textBadHeight    = "Please enter a valid number for height (e.g. 175)."
	textBadWeight    = "Please enter a valid number for weight (e.g. 75)."
	textBadActivity  = "Please choose one of the activity levels below."
	textBadGoal      = "Please choose one of the goals below."
	textAskPhoto     = "Send a photo of the dish or type its name."
	textUnrecognized = "The dish was not recognized. Please enter the dish name manually:"
	textBadConfirm   = "Please answer \"yes\" or \"no\"."
	textAskGramsYes  = "Great! Now enter the number of grams:"
	textAskName      = "Okay, please enter the name of the dish:"
	textBadName      = "Please enter the name of the dish."
	textAskGrams     = "Please indicate the weight of the dish in grams:"
	textBadGrams     = "Please enter the number of grams (e.g. 250)."
	textBadKcal      = "Please enter the number (kcal per 100g)."
	textLost         = "Something went wrong with this conversation, please start again."
)

var activityLabels = map[string]string{
	"1.2":   "Almost complete lack of physical activity",
	"1.375": "Low level of physical activity",
	"1.55":  "Average level of physical activity",
	"1.725": "Above average physical activity level",
	"1.9":   "High level of physical activity",
}

func activityOptions() []Option {
	opts := make([]Option, 0, len(entity.ActivityFactors))
	for _, f := range entity.ActivityFactors {
		v := activityValue(f)
		opts = append(opts, Option{Label: activityLabels[v], Value: v})
	}
	return opts
}

func goalOptions() []Option {
	goals := []entity.Goal{entity.GoalLoss, entity.GoalMaintain, entity.GoalGain}
	opts := make([]Option, 0, len(goals))
	for _, g := range goals {
		opts = append(opts, Option{Label: g.Label(), Value: string(g)})
	}
	return opts
}

func text(s string) Prompt { return Prompt{Text: s} }

func confirmPrompt(name string, confidence float64) Prompt {
	return text(fmt.Sprintf("I think it is %s (confidence %.1f%%).\nIs this correct? (yes/no)", name, confidence))
}

func askKcalPrompt(name string) Prompt {
	return text(fmt.Sprintf("I didn't find %s in the calorie database. Please enter the calorie content per 100g (kcal):", name))
}

// StepPrompt repeats the question the session is waiting on. Parked commit steps get the
// retry notice.
func StepPrompt(s Session) Prompt {
	switch s.Step {
	case StepAwaitingGender:
		return text(textAskGender)
	case StepAwaitingAge:
		return text(textAskAge)
	case StepAwaitingHeight:
		return text(textAskHeight)
	case StepAwaitingWeight:
		return text(textAskWeight)
	case StepAwaitingActivity:
		return Prompt{Text: textAskActivity, Options: activityOptions()}
	case StepAwaitingGoal:
		return Prompt{Text: textAskGoal, Options: goalOptions()}
	case StepAwaitingPhotoOrName:
		return text(textAskPhoto)
	case StepAwaitingConfirmation:
		return confirmPrompt(s.Pending.DishName, s.Pending.Confidence)
	case StepAwaitingManualName:
		return text(textAskName)
	case StepAwaitingGrams:
		return text(textAskGrams)
	case StepAwaitingManualKcal:
		return askKcalPrompt(s.Pending.DishName)
	case StepCommitUser, StepResolvingCalories, StepCommitMeal:
		return CommitFailedPrompt()
	}
	return IdlePrompt()
}

// IdlePrompt is the reply to anything sent outside a dialog.
func IdlePrompt() Prompt { return text(textIdle) }

func RegisteredPrompt() Prompt {
	return text("Registration is complete.\nUse /add to add food or /profile to view your profile.")
}

func AlreadyRegisteredPrompt() Prompt {
	return text("Welcome to Food Classifier Bot!\nYou're already registered. Use /add to add food or /profile to view your profile.")
}

func NotRegisteredPrompt() Prompt {
	return text("You are not registered. Press /start")
}

func MealSavedPrompt(m entity.Meal, newEntry bool) Prompt {
	if newEntry {
		return text(fmt.Sprintf("Saved and added: %s, %g g, %.1f kcal.", m.DishName, m.Grams, m.Kcal))
	}
	return text(fmt.Sprintf("Added: %s, %g g, %.1f kcal.", m.DishName, m.Grams, m.Kcal))
}

// CommitFailedPrompt tells the user the data is kept and can be saved again.
func CommitFailedPrompt() Prompt {
	return text("Sorry, I could not save that right now. Send any message to try again, or /cancel to drop it.")
}

// FailurePrompt is the generic reply when an event could not be processed at all.
func FailurePrompt() Prompt {
	return text("Something went wrong... Please try again.")
}

func HelpPrompt() Prompt {
	return text("What the bot can do:\n" +
		"- recognize 101 types of dishes from a photo\n" +
		"- show the prediction confidence\n" +
		"- keep a daily calorie diary\n\n" +
		"Main commands:\n" +
		"/start - register\n" +
		"/add - add a meal\n" +
		"/profile - today's meals and remaining calories\n" +
		"/info - about the recognition model\n" +
		"/cancel - abort the current dialog")
}

func InfoPrompt() Prompt {
	return text("About the model\n\n" +
		"Model: Vision Transformer (ViT-B/16)\n" +
		"Dataset: Food-101\n" +
		"Number of classes: 101\n" +
		"Accuracy: ~86% on the test set")
}

// HistoryOption is the button attached to the profile summary.
func HistoryOption() Option {
	return Option{Label: "History by days", Value: SelectionHistory}
}
