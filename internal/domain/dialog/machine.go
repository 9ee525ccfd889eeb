package dialog

type Effect int

const (
	EffectNone Effect = iota
	// EffectResolveCalories asks the caller to read the calorie cache for Pending.DishName
	// and answer with a KindCalorieLookup event.
	EffectResolveCalories
	EffectCommitUser
	EffectCommitMeal
)

func (e Effect) String() string {
	switch e {
	case EffectResolveCalories:
		return "resolve_calories"
	case EffectCommitUser:
		return "commit_user"
	case EffectCommitMeal:
		return "commit_meal"
	}
	return "none"
}

type Result struct {
	Session Session
	Prompt  Prompt
	Effect  Effect
	// Accepted is false when the input was rejected and the session left untouched.
	Accepted bool
}

// Transition applies ev to s. It never mutates s; a rejected input returns s as is together
// with exactly one corrective prompt.
func Transition(s Session, ev Event) Result {
	if s.Step == "" {
		s.Step = StepIdle
	}
	if ev.Kind == KindCommand {
		return onCommand(s, ev)
	}
	if ev.Kind == KindCalorieLookup {
		return onLookup(s, ev)
	}

	switch s.Step {
	case StepIdle:
		return reject(s, IdlePrompt())
	case StepAwaitingGender:
		return onGender(s, ev)
	case StepAwaitingAge:
		return onAge(s, ev)
	case StepAwaitingHeight:
		return onHeight(s, ev)
	case StepAwaitingWeight:
		return onWeight(s, ev)
	case StepAwaitingActivity:
		return onActivity(s, ev)
	case StepAwaitingGoal:
		return onGoal(s, ev)
	case StepCommitUser:
		return Result{Session: s, Effect: EffectCommitUser, Accepted: true}
	case StepAwaitingPhotoOrName:
		return onPhotoOrName(s, ev)
	case StepAwaitingConfirmation:
		return onConfirmation(s, ev)
	case StepAwaitingManualName:
		return onManualName(s, ev)
	case StepAwaitingGrams:
		return onGrams(s, ev)
	case StepResolvingCalories:
		return Result{Session: s, Effect: EffectResolveCalories, Accepted: true}
	case StepAwaitingManualKcal:
		return onManualKcal(s, ev)
	case StepCommitMeal:
		return Result{Session: s, Effect: EffectCommitMeal, Accepted: true}
	}
	return advance(NewSession(s.UserID), text(textLost))
}

func reject(s Session, p Prompt) Result {
	return Result{Session: s, Prompt: p}
}

func advance(s Session, p Prompt) Result {
	return Result{Session: s, Prompt: p, Accepted: true}
}

func onCommand(s Session, ev Event) Result {
	switch ev.Command() {
	case CommandCancel:
		if s.Idle() {
			return reject(s, text(textNothingToEnd))
		}
		return advance(NewSession(s.UserID), text(textCancelled))
	case CommandStart:
		next := NewSession(s.UserID)
		next.Step = StepAwaitingGender
		next.Pending.DisplayName = ev.DisplayName
		return advance(next, text(textWelcome))
	case CommandAdd:
		next := NewSession(s.UserID)
		next.Step = StepAwaitingPhotoOrName
		return advance(next, text(textAskPhoto))
	}
	return reject(s, StepPrompt(s))
}

func onLookup(s Session, ev Event) Result {
	if s.Step != StepResolvingCalories {
		return reject(s, Prompt{})
	}
	if !ev.Found {
		s.Step = StepAwaitingManualKcal
		return advance(s, askKcalPrompt(s.Pending.DishName))
	}
	s.Pending.KcalPer100g = ev.Kcal
	s.Pending.NewCalorie = false
	s.Step = StepCommitMeal
	return Result{Session: s, Effect: EffectCommitMeal, Accepted: true}
}

func onGender(s Session, ev Event) Result {
	if ev.Kind != KindText {
		return reject(s, text(textBadGender))
	}
	g, ok := parseGender(ev.Text)
	if !ok {
		return reject(s, text(textBadGender))
	}
	s.Pending.Gender = g
	s.Step = StepAwaitingAge
	return advance(s, text(textAskAge))
}

func onAge(s Session, ev Event) Result {
	if ev.Kind != KindText {
		return reject(s, text(textBadAge))
	}
	age, ok := parsePositiveInt(ev.Text)
	if !ok {
		return reject(s, text(textBadAge))
	}
	s.Pending.Age = age
	s.Step = StepAwaitingHeight
	return advance(s, text(textAskHeight))
}

func onHeight(s Session, ev Event) Result {
	if ev.Kind != KindText {
		return reject(s, text(textBadHeight))
	}
	h, ok := parsePositiveFloat(ev.Text)
	if !ok {
		return reject(s, text(textBadHeight))
	}
	s.Pending.HeightCm = h
	s.Step = StepAwaitingWeight
	return advance(s, text(textAskWeight))
}

func onWeight(s Session, ev Event) Result {
	if ev.Kind != KindText {
		return reject(s, text(textBadWeight))
	}
	w, ok := parsePositiveFloat(ev.Text)
	if !ok {
		return reject(s, text(textBadWeight))
	}
	s.Pending.WeightKg = w
	s.Step = StepAwaitingActivity
	return advance(s, Prompt{Text: textAskActivity, Options: activityOptions()})
}

func onActivity(s Session, ev Event) Result {
	bad := Prompt{Text: textBadActivity, Options: activityOptions()}
	if ev.Kind != KindSelection {
		return reject(s, bad)
	}
	f, ok := parseActivity(ev.Text)
	if !ok {
		return reject(s, bad)
	}
	s.Pending.ActivityFactor = f
	s.Step = StepAwaitingGoal
	return advance(s, Prompt{Text: textAskGoal, Options: goalOptions()})
}

func onGoal(s Session, ev Event) Result {
	bad := Prompt{Text: textBadGoal, Options: goalOptions()}
	if ev.Kind != KindSelection {
		return reject(s, bad)
	}
	g, ok := parseGoal(ev.Text)
	if !ok {
		return reject(s, bad)
	}
	s.Pending.Goal = g
	s.Step = StepCommitUser
	return Result{Session: s, Effect: EffectCommitUser, Accepted: true}
}

func onPhotoOrName(s Session, ev Event) Result {
	switch ev.Kind {
	case KindPhoto:
		top, ok := TopPrediction(ev.Predictions)
		if !ok {
			s.Step = StepAwaitingManualName
			return advance(s, text(textUnrecognized))
		}
		name, ok := parseDishName(top.Label)
		if !ok {
			s.Step = StepAwaitingManualName
			return advance(s, text(textUnrecognized))
		}
		s.Pending.DishName = name
		s.Pending.Confidence = top.Confidence
		s.Step = StepAwaitingConfirmation
		return advance(s, confirmPrompt(name, top.Confidence))
	case KindText:
		name, ok := parseDishName(ev.Text)
		if !ok {
			return reject(s, text(textAskPhoto))
		}
		s.Pending.DishName = name
		s.Step = StepAwaitingGrams
		return advance(s, text(textAskGrams))
	}
	return reject(s, text(textAskPhoto))
}

func onConfirmation(s Session, ev Event) Result {
	if ev.Kind != KindText && ev.Kind != KindSelection {
		return reject(s, text(textBadConfirm))
	}
	yes, ok := parseConfirmation(ev.Text)
	if !ok {
		return reject(s, text(textBadConfirm))
	}
	if yes {
		s.Step = StepAwaitingGrams
		return advance(s, text(textAskGramsYes))
	}
	s.Pending.DishName = ""
	s.Pending.Confidence = 0
	s.Step = StepAwaitingManualName
	return advance(s, text(textAskName))
}

func onManualName(s Session, ev Event) Result {
	if ev.Kind != KindText {
		return reject(s, text(textBadName))
	}
	name, ok := parseDishName(ev.Text)
	if !ok {
		return reject(s, text(textBadName))
	}
	s.Pending.DishName = name
	s.Step = StepAwaitingGrams
	return advance(s, text(textAskGrams))
}

func onGrams(s Session, ev Event) Result {
	if ev.Kind != KindText {
		return reject(s, text(textBadGrams))
	}
	g, ok := parsePositiveFloat(ev.Text)
	if !ok {
		return reject(s, text(textBadGrams))
	}
	s.Pending.Grams = g
	s.Step = StepResolvingCalories
	return Result{Session: s, Effect: EffectResolveCalories, Accepted: true}
}

func onManualKcal(s Session, ev Event) Result {
	if ev.Kind != KindText {
		return reject(s, text(textBadKcal))
	}
	k, ok := parsePositiveFloat(ev.Text)
	if !ok {
		return reject(s, text(textBadKcal))
	}
	s.Pending.KcalPer100g = k
	s.Pending.NewCalorie = true
	s.Step = StepCommitMeal
	return Result{Session: s, Effect: EffectCommitMeal, Accepted: true}
}
