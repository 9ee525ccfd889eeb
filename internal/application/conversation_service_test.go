package application

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/dialog"
	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
)

func text(id int64, s string) dialog.Event {
	return dialog.Event{UserID: id, Kind: dialog.KindText, Text: s}
}

func selection(id int64, s string) dialog.Event {
	return dialog.Event{UserID: id, Kind: dialog.KindSelection, Text: s}
}

func command(id int64, s string) dialog.Event {
	return dialog.Event{UserID: id, Kind: dialog.KindCommand, Text: s, DisplayName: "ann"}
}

func photo(id int64, label string, confidence float64) dialog.Event {
	return dialog.Event{UserID: id, Kind: dialog.KindPhoto, Predictions: []dialog.Prediction{{Label: label, Confidence: confidence}}}
}

func (f *fixture) send(t *testing.T, events ...dialog.Event) dialog.Prompt {
	t.Helper()
	var p dialog.Prompt
	for _, ev := range events {
		p = f.svc.HandleEvent(context.Background(), ev)
		require.NotEmpty(t, p.Text, "every event gets a reply")
	}
	return p
}

func TestRegistrationCommitsUser(t *testing.T) {
	f := newFixture()

	reply := f.send(t, command(1, "/start"), text(1, "f"), text(1, "30"), text(1, "165"),
		text(1, "60"), selection(1, "1.375"), selection(1, "maintain"))

	assert.Equal(t, dialog.RegisteredPrompt(), reply)
	u, err := f.users.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, entity.GenderFemale, u.Gender)
	assert.Equal(t, "ann", u.DisplayName)
	assert.True(t, f.sessions.get(1).Idle())
}

func TestStartWhenRegisteredDoesNotTouchSession(t *testing.T) {
	f := newFixture()
	f.register(1)
	f.send(t, command(1, "/add"))

	reply := f.send(t, command(1, "/start"))
	assert.Equal(t, dialog.AlreadyRegisteredPrompt(), reply)
	assert.Equal(t, dialog.StepAwaitingPhotoOrName, f.sessions.get(1).Step)
}

func TestAddRequiresRegistration(t *testing.T) {
	f := newFixture()
	assert.Equal(t, dialog.NotRegisteredPrompt(), f.send(t, command(1, "/add")))
	assert.True(t, f.sessions.get(1).Idle())
	assert.Equal(t, dialog.NotRegisteredPrompt(), f.send(t, command(1, "/profile")))
}

func TestCommitUserFailureParksAndRetries(t *testing.T) {
	f := newFixture()
	f.users.setFail(errStoreDown)

	reply := f.send(t, command(1, "/start"), text(1, "m"), text(1, "25"), text(1, "180"),
		text(1, "80"), selection(1, "1.9"), selection(1, "gain"))
	assert.Equal(t, dialog.CommitFailedPrompt(), reply)
	parkedSession := f.sessions.get(1)
	assert.Equal(t, dialog.StepCommitUser, parkedSession.Step)
	assert.Equal(t, 80.0, parkedSession.Pending.WeightKg)

	f.users.setFail(nil)
	assert.Equal(t, dialog.RegisteredPrompt(), f.send(t, text(1, "again")))
	ok, _ := f.users.Exists(context.Background(), 1)
	assert.True(t, ok)
	assert.True(t, f.sessions.get(1).Idle())
}

func TestCommitUserAlreadyExistsResetsDialog(t *testing.T) {
	f := newFixture()
	f.send(t, command(1, "/start"), text(1, "m"), text(1, "25"), text(1, "180"), text(1, "80"), selection(1, "1.9"))
	f.register(1) // registered elsewhere meanwhile

	assert.Equal(t, dialog.AlreadyRegisteredPrompt(), f.send(t, selection(1, "gain")))
	assert.True(t, f.sessions.get(1).Idle())
}

func TestMealFromCachedPrediction(t *testing.T) {
	f := newFixture()
	f.register(1)
	f.seed("Pizza", 120)

	reply := f.send(t, command(1, "/add"), photo(1, "pizza", 87.5), text(1, "yes"), text(1, "250"))

	assert.Equal(t, "Added: Pizza, 250 g, 300.0 kcal.", reply.Text)
	meals := f.meals.all()
	require.Len(t, meals, 1)
	assert.Equal(t, 300.0, meals[0].Kcal)
	assert.True(t, f.sessions.get(1).Idle())
}

func TestLowConfidenceAsksForName(t *testing.T) {
	f := newFixture()
	f.register(1)
	f.send(t, command(1, "/add"), photo(1, "pizza", 49.9))
	assert.Equal(t, dialog.StepAwaitingManualName, f.sessions.get(1).Step)

	f.send(t, command(1, "/add"), photo(1, "pizza", 50.0))
	assert.Equal(t, dialog.StepAwaitingConfirmation, f.sessions.get(1).Step)
}

func TestManualCalorieFallbackIndexesNewEntry(t *testing.T) {
	f := newFixture()
	f.register(1)

	reply := f.send(t, command(1, "/add"), photo(1, "soup", 20), text(1, "borscht  WITH_cream"), text(1, "300"))
	assert.Contains(t, reply.Text, "Borscht with cream")
	assert.Equal(t, dialog.StepAwaitingManualKcal, f.sessions.get(1).Step)

	reply = f.send(t, text(1, "57"))
	assert.Equal(t, "Saved and added: Borscht with cream, 300 g, 171.0 kcal.", reply.Text)

	c, err := f.calories.Get(context.Background(), "Borscht with cream")
	require.NoError(t, err)
	assert.Equal(t, entity.SourceUser, c.Source)

	select {
	case got := <-f.indexer.ch:
		assert.Equal(t, "Borscht with cream", got.Name)
	case <-time.After(time.Second):
		t.Fatal("new entry was not indexed")
	}
}

func TestDuplicateManualCalorieFirstWriterWins(t *testing.T) {
	f := newFixture()
	f.register(1)
	f.register(2)

	// both users reach the manual kcal step before either commits
	f.send(t, command(1, "/add"), text(1, "Soup"), text(1, "100"))
	f.send(t, command(2, "/add"), text(2, "soup"), text(2, "200"))
	f.send(t, text(1, "40"))
	f.send(t, text(2, "90"))

	c, err := f.calories.Get(context.Background(), "Soup")
	require.NoError(t, err)
	assert.Equal(t, 40.0, c.KcalPer100g)

	meals := f.meals.all()
	require.Len(t, meals, 2)
	assert.Equal(t, 40.0, meals[0].Kcal)
	assert.Equal(t, 180.0, meals[1].Kcal, "second meal keeps the figure its user typed")
	assert.Eventually(t, func() bool { return len(f.indexer.ch) == 1 }, time.Second, 5*time.Millisecond)
}

func TestCommitMealFailureParksAndRetries(t *testing.T) {
	f := newFixture()
	f.register(1)
	f.seed("Pizza", 120)
	f.meals.setFail(errStoreDown)

	reply := f.send(t, command(1, "/add"), text(1, "pizza"), text(1, "100"))
	assert.Equal(t, dialog.CommitFailedPrompt(), reply)
	assert.Equal(t, dialog.StepCommitMeal, f.sessions.get(1).Step)
	assert.Empty(t, f.meals.all())

	f.meals.setFail(nil)
	reply = f.send(t, text(1, "retry"))
	assert.Equal(t, "Added: Pizza, 100 g, 120.0 kcal.", reply.Text)
	assert.Len(t, f.meals.all(), 1)
}

func TestSessionSaveFailureAfterMealDoesNotDuplicate(t *testing.T) {
	f := newFixture()
	f.register(1)
	f.seed("Pizza", 120)
	f.send(t, command(1, "/add"), text(1, "pizza"))

	f.sessions.mu.Lock()
	f.sessions.failSaves = 1
	f.sessions.mu.Unlock()

	reply := f.send(t, text(1, "250"))
	assert.Equal(t, "Added: Pizza, 250 g, 300.0 kcal.", reply.Text)
	require.NotNil(t, f.hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, f.hook.LastEntry().Level)

	reply = f.send(t, text(1, "250"))
	assert.Equal(t, dialog.IdlePrompt(), reply)
	assert.Len(t, f.meals.all(), 1)
	assert.True(t, f.sessions.get(1).Idle())
}

func TestSessionClearFailureSkipsCommit(t *testing.T) {
	f := newFixture()
	f.register(1)
	f.seed("Pizza", 120)
	f.send(t, command(1, "/add"), text(1, "pizza"))
	f.sessions.failDelete = errStoreDown

	reply := f.send(t, text(1, "250"))
	assert.Equal(t, dialog.FailurePrompt(), reply)
	assert.Empty(t, f.meals.all())
	assert.Equal(t, dialog.StepAwaitingGrams, f.sessions.get(1).Step)

	f.sessions.failDelete = nil
	reply = f.send(t, text(1, "250"))
	assert.Equal(t, "Added: Pizza, 250 g, 300.0 kcal.", reply.Text)
	assert.Len(t, f.meals.all(), 1)
}

func TestCancelDiscardsPending(t *testing.T) {
	f := newFixture()
	f.register(1)
	f.send(t, command(1, "/add"), text(1, "pizza"))

	reply := f.send(t, command(1, "/cancel"))
	assert.Equal(t, "Action cancelled.", reply.Text)
	assert.True(t, f.sessions.get(1).Idle())
	assert.Empty(t, f.meals.all())

	reply = f.send(t, command(1, "/cancel"))
	assert.Equal(t, "You are not in the process of filling out the form.", reply.Text)
}

func TestRejectedInputKeepsSession(t *testing.T) {
	f := newFixture()
	f.send(t, command(1, "/start"), text(1, "f"))
	before := f.sessions.get(1)

	first := f.send(t, text(1, "abc"))
	second := f.send(t, text(1, "-3"))
	assert.Equal(t, first, second)
	assert.Equal(t, before, f.sessions.get(1))
}

func TestSessionStoreFailureGivesGenericReply(t *testing.T) {
	f := newFixture()
	f.sessions.failGet = errStoreDown

	reply := f.send(t, text(1, "hello"))
	assert.Equal(t, dialog.FailurePrompt(), reply)
	require.NotNil(t, f.hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, f.hook.LastEntry().Level)
}

type panickingLookup struct{}

func (panickingLookup) Resolve(context.Context, string) (float64, bool, error) {
	panic("boom")
}

func TestPanicIsRecovered(t *testing.T) {
	f := newFixture()
	f.register(1)
	f.svc.Calories = panickingLookup{}
	f.send(t, command(1, "/add"), text(1, "pizza"))

	reply := f.send(t, text(1, "100"))
	assert.Equal(t, dialog.FailurePrompt(), reply)
	assert.Equal(t, dialog.StepAwaitingGrams, f.sessions.get(1).Step, "session unchanged")
	assert.Equal(t, "event handling panicked", f.hook.LastEntry().Message)

	// the user lock was released and the dialog can continue
	f.svc.Calories = NewCalorieResolver(f.calories, nil, nil, f.svc.Logger, DefaultResolverOptions())
	f.seed("Pizza", 120)
	reply = f.send(t, text(1, "100"))
	assert.Equal(t, "Added: Pizza, 100 g, 120.0 kcal.", reply.Text)
}

func TestProfileAndHistory(t *testing.T) {
	f := newFixture()
	f.register(1)
	f.seed("Pizza", 120)
	now := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }
	f.svc.Profiles.now = func() time.Time { return now }

	f.meals.meals = append(f.meals.meals, entity.Meal{UserID: 1, DishName: "Soup", Grams: 100, Kcal: 40, EatenAt: now.AddDate(0, 0, -1)})
	f.send(t, command(1, "/add"), text(1, "pizza"), text(1, "250"))

	reply := f.send(t, command(1, "/profile"))
	assert.Contains(t, reply.Text, "Goal: Maintaining weight")
	assert.Contains(t, reply.Text, "- Pizza: 250 g, 300.0 kcal")
	assert.NotContains(t, reply.Text, "Soup")
	assert.Equal(t, []dialog.Option{dialog.HistoryOption()}, reply.Options)

	reply = f.send(t, selection(1, dialog.SelectionHistory))
	lines := strings.Split(reply.Text, "\n")
	assert.Equal(t, "2024-05-02: 300.0 kcal", lines[2])
	assert.Equal(t, "2024-05-01: 40.0 kcal", lines[3])
}

func TestUsersProceedInParallelAndInOrder(t *testing.T) {
	f := newFixture()
	f.seed("Pizza", 100)
	const users = 20

	for id := int64(1); id <= users; id++ {
		f.register(id)
	}

	var wg sync.WaitGroup
	for id := int64(1); id <= users; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for _, ev := range []dialog.Event{command(id, "/add"), text(id, "pizza"), text(id, "150")} {
				f.svc.HandleEvent(context.Background(), ev)
			}
		}(id)
	}
	wg.Wait()

	meals := f.meals.all()
	require.Len(t, meals, users)
	for _, m := range meals {
		assert.Equal(t, 150.0, m.Kcal)
	}
	assert.Equal(t, 0, f.svc.locks.size())
}
