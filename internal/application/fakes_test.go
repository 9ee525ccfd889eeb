package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/dialog"
	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
	"github.com/oksasatya/kcal-diary-bot/internal/domain/repository"
)

var errStoreDown = errors.New("store down")

type memUserRepo struct {
	mu   sync.Mutex
	byID map[int64]*entity.User
	fail error
}

func (r *memUserRepo) Exists(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byID[id]
	return ok, nil
}

func (r *memUserRepo) Create(ctx context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	if _, ok := r.byID[u.ID]; ok {
		return repository.ErrAlreadyExists
	}
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) setFail(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

type memCalorieRepo struct {
	mu     sync.Mutex
	byName map[string]entity.CalorieEntry
	reads  int
}

func (r *memCalorieRepo) Get(ctx context.Context, name string) (*entity.CalorieEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	c, ok := r.byName[entity.NormalizeDishName(name)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *memCalorieRepo) Upsert(ctx context.Context, c *entity.CalorieEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(c), nil
}

func (r *memCalorieRepo) insertLocked(c *entity.CalorieEntry) bool {
	c.Name = entity.NormalizeDishName(c.Name)
	if _, ok := r.byName[c.Name]; ok {
		return false
	}
	r.byName[c.Name] = *c
	return true
}

type memMealRepo struct {
	mu       sync.Mutex
	calories *memCalorieRepo
	meals    []entity.Meal
	fail     error
}

func (r *memMealRepo) Append(ctx context.Context, m *entity.Meal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	m.ID = int64(len(r.meals) + 1)
	r.meals = append(r.meals, *m)
	return nil
}

func (r *memMealRepo) AppendWithCalorie(ctx context.Context, c *entity.CalorieEntry, m *entity.Meal) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return false, r.fail
	}
	r.calories.mu.Lock()
	inserted := r.calories.insertLocked(c)
	r.calories.mu.Unlock()
	m.ID = int64(len(r.meals) + 1)
	r.meals = append(r.meals, *m)
	return inserted, nil
}

func (r *memMealRepo) ListByUser(ctx context.Context, userID int64, since time.Time) ([]entity.Meal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Meal
	for _, m := range r.meals {
		if m.UserID == userID && !m.EatenAt.Before(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMealRepo) DailyTotals(ctx context.Context, userID int64, limit int) ([]entity.DayTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sums := map[time.Time]float64{}
	for _, m := range r.meals {
		if m.UserID == userID {
			sums[startOfDay(m.EatenAt)] += m.Kcal
		}
	}
	out := make([]entity.DayTotal, 0, len(sums))
	for d, k := range sums {
		out = append(out, entity.DayTotal{Day: d, Kcal: k})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.After(out[j].Day) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memMealRepo) setFail(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

func (r *memMealRepo) all() []entity.Meal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.Meal(nil), r.meals...)
}

type memSessionRepo struct {
	mu         sync.Mutex
	m          map[int64]dialog.Session
	failGet    error
	failDelete error
	failSaves  int // number of upcoming saves that fail
}

func (r *memSessionRepo) Get(ctx context.Context, userID int64) (dialog.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return dialog.Session{}, r.failGet
	}
	s, ok := r.m[userID]
	if !ok {
		return dialog.NewSession(userID), nil
	}
	return s, nil
}

func (r *memSessionRepo) Save(ctx context.Context, s dialog.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSaves > 0 {
		r.failSaves--
		return errStoreDown
	}
	if s.Idle() {
		delete(r.m, s.UserID)
		return nil
	}
	r.m[s.UserID] = s
	return nil
}

func (r *memSessionRepo) Delete(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete != nil {
		return r.failDelete
	}
	delete(r.m, userID)
	return nil
}

func (r *memSessionRepo) get(userID int64) dialog.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[userID]
	if !ok {
		return dialog.NewSession(userID)
	}
	return s
}

type recordingIndexer struct {
	ch chan entity.CalorieEntry
}

func (i *recordingIndexer) Index(ctx context.Context, c *entity.CalorieEntry) error {
	i.ch <- *c
	return nil
}

type fixture struct {
	users    *memUserRepo
	calories *memCalorieRepo
	meals    *memMealRepo
	sessions *memSessionRepo
	indexer  *recordingIndexer
	hook     *test.Hook
	svc      *ConversationService
}

func newFixture() *fixture {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		users:    &memUserRepo{byID: map[int64]*entity.User{}},
		calories: &memCalorieRepo{byName: map[string]entity.CalorieEntry{}},
		sessions: &memSessionRepo{m: map[int64]dialog.Session{}},
		indexer:  &recordingIndexer{ch: make(chan entity.CalorieEntry, 16)},
		hook:     hook,
	}
	f.meals = &memMealRepo{calories: f.calories}
	resolver := NewCalorieResolver(f.calories, nil, nil, logger, DefaultResolverOptions())
	profiles := NewProfileService(f.users, f.meals)
	f.svc = NewConversationService(f.users, f.meals, f.sessions, resolver, profiles, f.indexer, logger)
	return f
}

func (f *fixture) register(id int64) {
	f.users.byID[id] = &entity.User{
		ID: id, DisplayName: "ann", Gender: entity.GenderFemale, Age: 30,
		HeightCm: 165, WeightKg: 60, ActivityFactor: 1.2, Goal: entity.GoalMaintain,
	}
}

func (f *fixture) seed(name string, kcal float64) {
	f.calories.byName[name] = entity.CalorieEntry{Name: name, KcalPer100g: kcal, Source: entity.SourceSeed}
}
