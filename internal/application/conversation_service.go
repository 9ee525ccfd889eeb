package application

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/dialog"
	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
	"github.com/oksasatya/kcal-diary-bot/internal/domain/repository"
	"github.com/oksasatya/kcal-diary-bot/pkg/validation"
)

// CalorieLookup is the cache read performed when a dialog reaches calorie resolution.
type CalorieLookup interface {
	Resolve(ctx context.Context, name string) (float64, bool, error)
}

// ConversationService drives the dialog state machine for inbound events. Events of one user
// are handled strictly one at a time in arrival order; different users proceed in parallel.
// The per-user lock is in-process, so one instance must own a given user.
type ConversationService struct {
	Users    repository.UserRepository
	Meals    repository.MealRepository
	Sessions repository.SessionRepository
	Calories CalorieLookup
	Profiles *ProfileService
	Indexer  DishIndexer // optional
	Logger   *logrus.Logger

	locks        *keyedMutex
	now          func() time.Time
	indexTimeout time.Duration
}

func NewConversationService(
	users repository.UserRepository,
	meals repository.MealRepository,
	sessions repository.SessionRepository,
	calories CalorieLookup,
	profiles *ProfileService,
	indexer DishIndexer,
	logger *logrus.Logger,
) *ConversationService {
	return &ConversationService{
		Users:        users,
		Meals:        meals,
		Sessions:     sessions,
		Calories:     calories,
		Profiles:     profiles,
		Indexer:      indexer,
		Logger:       logger,
		locks:        newKeyedMutex(),
		now:          time.Now,
		indexTimeout: 3 * time.Second,
	}
}

// HandleEvent always produces a reply. Unexpected failures, panics included, are logged and
// answered with a generic failure prompt while the stored session stays as it was.
func (s *ConversationService) HandleEvent(ctx context.Context, ev dialog.Event) (reply dialog.Prompt) {
	conversationVars.Add(varEvents, 1)
	log := s.Logger.WithFields(logrus.Fields{"user_id": ev.UserID, "kind": ev.Kind})

	defer func() {
		if rec := recover(); rec != nil {
			conversationVars.Add(varFailures, 1)
			log.WithFields(logrus.Fields{"panic": rec, "stack": string(debug.Stack())}).Error("event handling panicked")
			reply = dialog.FailurePrompt()
		}
	}()

	unlock, err := s.locks.Lock(ctx, ev.UserID)
	if err != nil {
		conversationVars.Add(varFailures, 1)
		log.WithError(err).Warn("gave up waiting for user lock")
		return dialog.FailurePrompt()
	}
	defer unlock()

	reply, err = s.handle(ctx, ev, log)
	if err != nil {
		conversationVars.Add(varFailures, 1)
		log.WithError(err).Error("event handling failed")
		return dialog.FailurePrompt()
	}
	return reply
}

func (s *ConversationService) handle(ctx context.Context, ev dialog.Event, log *logrus.Entry) (dialog.Prompt, error) {
	if p, ok, err := s.gate(ctx, ev); ok || err != nil {
		return p, err
	}

	sess, err := s.Sessions.Get(ctx, ev.UserID)
	if err != nil {
		return dialog.Prompt{}, err
	}

	res := dialog.Transition(sess, ev)
	if !res.Accepted {
		log.WithField("step", sess.Step).Debug("input rejected")
		return res.Prompt, nil
	}
	prompt := res.Prompt
	cleared := false

	for res.Effect != dialog.EffectNone {
		log.WithFields(logrus.Fields{"step": res.Session.Step, "effect": res.Effect}).Debug("performing effect")
		switch res.Effect {
		case dialog.EffectResolveCalories:
			kcal, found, err := s.Calories.Resolve(ctx, res.Session.Pending.DishName)
			if err != nil {
				return dialog.Prompt{}, err
			}
			res = dialog.Transition(res.Session, dialog.LookupEvent(ev.UserID, kcal, found))
			if !res.Accepted {
				return dialog.Prompt{}, fmt.Errorf("lookup result rejected at step %s", res.Session.Step)
			}
		case dialog.EffectCommitUser, dialog.EffectCommitMeal:
			// The stored session is dropped before the durable write so a failed save
			// afterwards can never replay the commit.
			if !cleared {
				if err := s.Sessions.Delete(ctx, ev.UserID); err != nil {
					return dialog.Prompt{}, err
				}
				cleared = true
			}
			if res.Effect == dialog.EffectCommitUser {
				res = s.commitUser(ctx, res.Session, log)
			} else {
				res = s.commitMeal(ctx, res.Session, log)
			}
		default:
			return dialog.Prompt{}, fmt.Errorf("unknown effect %v", res.Effect)
		}
		prompt = res.Prompt
	}

	if err := s.Sessions.Save(ctx, res.Session); err != nil {
		if cleared && res.Session.Idle() {
			log.WithError(err).Warn("session save failed after commit")
			return prompt, nil
		}
		return dialog.Prompt{}, err
	}
	return prompt, nil
}

// gate answers the commands that depend on registration state or only read data. They never
// touch the session.
func (s *ConversationService) gate(ctx context.Context, ev dialog.Event) (dialog.Prompt, bool, error) {
	if ev.Kind == dialog.KindSelection && ev.Text == dialog.SelectionHistory {
		totals, err := s.Profiles.History(ctx, ev.UserID)
		if err != nil {
			return dialog.Prompt{}, true, err
		}
		return historyPrompt(totals), true, nil
	}
	if ev.Kind != dialog.KindCommand {
		return dialog.Prompt{}, false, nil
	}

	switch ev.Command() {
	case dialog.CommandStart, dialog.CommandAdd:
		registered, err := s.Users.Exists(ctx, ev.UserID)
		if err != nil {
			return dialog.Prompt{}, true, err
		}
		if ev.Command() == dialog.CommandStart && registered {
			return dialog.AlreadyRegisteredPrompt(), true, nil
		}
		if ev.Command() == dialog.CommandAdd && !registered {
			return dialog.NotRegisteredPrompt(), true, nil
		}
	case dialog.CommandProfile:
		sum, err := s.Profiles.Summary(ctx, ev.UserID)
		if errors.Is(err, ErrUserNotFound) {
			return dialog.NotRegisteredPrompt(), true, nil
		}
		if err != nil {
			return dialog.Prompt{}, true, err
		}
		return profilePrompt(sum), true, nil
	case dialog.CommandHelp:
		return dialog.HelpPrompt(), true, nil
	case dialog.CommandInfo:
		return dialog.InfoPrompt(), true, nil
	}
	return dialog.Prompt{}, false, nil
}

func done(userID int64, p dialog.Prompt) dialog.Result {
	return dialog.Result{Session: dialog.NewSession(userID), Prompt: p, Accepted: true}
}

// parked keeps the session at its terminal step so the next message retries the commit.
func parked(sess dialog.Session) dialog.Result {
	conversationVars.Add(varCommitFailures, 1)
	return dialog.Result{Session: sess, Prompt: dialog.CommitFailedPrompt(), Accepted: true}
}

func (s *ConversationService) commitUser(ctx context.Context, sess dialog.Session, log *logrus.Entry) dialog.Result {
	u := sess.User()
	if err := validation.Struct(&u); err != nil {
		log.WithError(err).Error("registration data invalid, dropping dialog")
		return done(sess.UserID, dialog.FailurePrompt())
	}

	err := s.Users.Create(ctx, &u)
	switch {
	case errors.Is(err, repository.ErrAlreadyExists):
		return done(sess.UserID, dialog.AlreadyRegisteredPrompt())
	case err != nil:
		log.WithError(err).Error("commit user failed")
		return parked(sess)
	}

	conversationVars.Add(varUsersCreated, 1)
	log.WithFields(logrus.Fields{"goal": u.Goal, "activity": u.ActivityFactor}).Info("user registered")
	return done(sess.UserID, dialog.RegisteredPrompt())
}

func (s *ConversationService) commitMeal(ctx context.Context, sess dialog.Session, log *logrus.Entry) dialog.Result {
	m := sess.Meal(s.now().UTC())
	if err := validation.Struct(&m); err != nil {
		log.WithError(err).Error("meal data invalid, dropping dialog")
		return done(sess.UserID, dialog.FailurePrompt())
	}

	var (
		entry    = sess.Calorie()
		inserted bool
		err      error
	)
	if entry != nil {
		inserted, err = s.Meals.AppendWithCalorie(ctx, entry, &m)
	} else {
		err = s.Meals.Append(ctx, &m)
	}
	if err != nil {
		log.WithError(err).WithField("dish", m.DishName).Error("commit meal failed")
		return parked(sess)
	}

	conversationVars.Add(varMealsLogged, 1)
	log.WithFields(logrus.Fields{"dish": m.DishName, "grams": m.Grams, "kcal": m.Kcal, "new_entry": inserted}).Info("meal logged")
	if inserted {
		s.indexAsync(ctx, entry, log)
	}
	return done(sess.UserID, dialog.MealSavedPrompt(m, entry != nil))
}

// indexAsync mirrors a user-supplied entry into the search index outside the user's lock.
func (s *ConversationService) indexAsync(ctx context.Context, c *entity.CalorieEntry, log *logrus.Entry) {
	if s.Indexer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.indexTimeout)
	go func() {
		defer cancel()
		if err := s.Indexer.Index(ctx, c); err != nil {
			log.WithError(err).WithField("dish", c.Name).Warn("dish index failed")
		}
	}()
}
