package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BackfillJob is the message published on the backfill queue. Empty Names means the whole
// dish catalog.
type BackfillJob struct {
	ID          string    `json:"id"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
	Names       []string  `json:"names,omitempty"`
}

func NewBackfillJob(requestedBy string, names []string) BackfillJob {
	return BackfillJob{ID: uuid.NewString(), RequestedBy: requestedBy, RequestedAt: time.Now().UTC(), Names: names}
}

type NameSource interface {
	Names(ctx context.Context) ([]string, error)
}

type ReportSaver interface {
	Save(ctx context.Context, report any) (string, error)
}

// BackfillService feeds the resolver from the dish catalog and archives the run report.
type BackfillService struct {
	Resolver *CalorieResolver
	Catalog  NameSource
	Reports  ReportSaver // optional
	Logger   *logrus.Logger
}

func NewBackfillService(resolver *CalorieResolver, catalog NameSource, reports ReportSaver, logger *logrus.Logger) *BackfillService {
	return &BackfillService{Resolver: resolver, Catalog: catalog, Reports: reports, Logger: logger}
}

func (s *BackfillService) Run(ctx context.Context, job BackfillJob) (BackfillReport, error) {
	log := s.Logger.WithField("job_id", job.ID)
	names := job.Names
	if len(names) == 0 {
		var err error
		if names, err = s.Catalog.Names(ctx); err != nil {
			log.WithError(err).Error("load dish catalog")
			return BackfillReport{}, err
		}
	}
	log.WithField("names", len(names)).Info("backfill started")

	report, err := s.Resolver.BackfillAll(ctx, names)
	if err != nil {
		return report, err
	}
	if s.Reports != nil {
		uri, err := s.Reports.Save(ctx, struct {
			Job BackfillJob `json:"job"`
			BackfillReport
		}{job, report})
		if err != nil {
			log.WithError(err).Warn("backfill report upload failed")
		} else {
			log.WithField("report", uri).Info("backfill report stored")
		}
	}
	return report, nil
}
