package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
	"github.com/oksasatya/kcal-diary-bot/internal/domain/repository"
	"github.com/oksasatya/kcal-diary-bot/internal/infrastructure/usda"
)

var ErrBackfillRunning = errors.New("backfill already running")

// NutritionSource returns kcal per 100 g for a dish name with a single remote call.
type NutritionSource interface {
	LookupKcal(ctx context.Context, name string) (float64, error)
}

// DishIndexer mirrors calorie entries into a search index.
type DishIndexer interface {
	Index(ctx context.Context, c *entity.CalorieEntry) error
}

type ResolverOptions struct {
	MaxAttempts    uint
	RetryBackoff   time.Duration
	LookupInterval time.Duration
}

func DefaultResolverOptions() ResolverOptions {
	return ResolverOptions{MaxAttempts: 3, RetryBackoff: 500 * time.Millisecond, LookupInterval: 500 * time.Millisecond}
}

type UnresolvedDish struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type BackfillReport struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Total      int              `json:"total"`
	Cached     int              `json:"cached"`
	Resolved   []string         `json:"resolved"`
	Unresolved []UnresolvedDish `json:"unresolved"`
}

type CalorieResolver struct {
	Store   repository.CalorieRepository
	Source  NutritionSource
	Indexer DishIndexer // optional
	Logger  *logrus.Logger
	opts    ResolverOptions
	running sync.Mutex
}

func NewCalorieResolver(store repository.CalorieRepository, source NutritionSource, indexer DishIndexer, logger *logrus.Logger, opts ResolverOptions) *CalorieResolver {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	return &CalorieResolver{Store: store, Source: source, Indexer: indexer, Logger: logger, opts: opts}
}

// Resolve reads the cache only; it never calls the nutrition source.
func (r *CalorieResolver) Resolve(ctx context.Context, name string) (float64, bool, error) {
	c, err := r.Store.Get(ctx, entity.NormalizeDishName(name))
	if errors.Is(err, repository.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolve %q: %w", name, err)
	}
	return c.KcalPer100g, true, nil
}

// BackfillAll fills the cache for every name that is not cached yet, one lookup at a time.
// Names that fail are reported and left absent, so a later run retries them. Only one
// backfill runs at a time per resolver; a concurrent call gets ErrBackfillRunning.
func (r *CalorieResolver) BackfillAll(ctx context.Context, names []string) (BackfillReport, error) {
	if !r.running.TryLock() {
		return BackfillReport{}, ErrBackfillRunning
	}
	defer r.running.Unlock()

	report := BackfillReport{StartedAt: time.Now().UTC(), Resolved: []string{}, Unresolved: []UnresolvedDish{}}
	limit := rate.Inf
	if r.opts.LookupInterval > 0 {
		limit = rate.Every(r.opts.LookupInterval)
	}
	limiter := rate.NewLimiter(limit, 1)

	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := entity.NormalizeDishName(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		report.Total++

		if _, found, err := r.Resolve(ctx, name); err != nil {
			report.Unresolved = append(report.Unresolved, UnresolvedDish{Name: name, Reason: err.Error()})
			r.Logger.WithError(err).WithField("dish", name).Error("backfill cache read failed")
			continue
		} else if found {
			report.Cached++
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			report.FinishedAt = time.Now().UTC()
			return report, err
		}

		kcal, err := r.lookup(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				report.FinishedAt = time.Now().UTC()
				return report, ctx.Err()
			}
			report.Unresolved = append(report.Unresolved, UnresolvedDish{Name: name, Reason: err.Error()})
			r.Logger.WithError(err).WithField("dish", name).Warn("dish not resolved")
			continue
		}

		entry := &entity.CalorieEntry{Name: name, KcalPer100g: kcal, Source: entity.SourceUSDA}
		if _, err := r.Store.Upsert(ctx, entry); err != nil {
			report.Unresolved = append(report.Unresolved, UnresolvedDish{Name: name, Reason: err.Error()})
			r.Logger.WithError(err).WithField("dish", name).Error("store calorie entry")
			continue
		}
		report.Resolved = append(report.Resolved, name)
		r.Logger.WithFields(logrus.Fields{"dish": name, "kcal_per_100g": kcal}).Info("dish resolved")
		r.index(ctx, entry)
	}

	report.FinishedAt = time.Now().UTC()
	backfillVars.Add(varRuns, 1)
	backfillVars.Add(varResolved, int64(len(report.Resolved)))
	backfillVars.Add(varUnresolved, int64(len(report.Unresolved)))
	r.Logger.WithFields(logrus.Fields{
		"total":      report.Total,
		"cached":     report.Cached,
		"resolved":   len(report.Resolved),
		"unresolved": len(report.Unresolved),
	}).Info("backfill finished")
	return report, nil
}

// lookup retries transient failures with a constant delay. A missing match or missing energy
// value is final for this run.
func (r *CalorieResolver) lookup(ctx context.Context, name string) (float64, error) {
	attempt := 0
	op := func() (float64, error) {
		attempt++
		kcal, err := r.Source.LookupKcal(ctx, name)
		if errors.Is(err, usda.ErrNoMatch) || errors.Is(err, usda.ErrNoEnergy) {
			return 0, backoff.Permanent(err)
		}
		if err == nil && kcal <= 0 {
			return 0, backoff.Permanent(usda.ErrNoEnergy)
		}
		return kcal, err
	}
	notify := func(err error, next time.Duration) {
		r.Logger.WithError(err).WithFields(logrus.Fields{"dish": name, "attempt": attempt, "retry_in": next}).Warn("nutrition lookup failed")
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(r.opts.RetryBackoff)),
		backoff.WithMaxTries(r.opts.MaxAttempts),
		backoff.WithNotify(notify),
	)
}

func (r *CalorieResolver) index(ctx context.Context, c *entity.CalorieEntry) {
	if r.Indexer == nil {
		return
	}
	if err := r.Indexer.Index(ctx, c); err != nil {
		r.Logger.WithError(err).WithField("dish", c.Name).Warn("dish index failed")
	}
}
