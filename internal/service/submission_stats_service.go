package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/observability"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

// StatsInvalidator drops cached statistics for a source after a write.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, kind models.SourceKind, sourceID uint)
}

// SubmissionStatsService computes teacher-facing rollups for one source.
type SubmissionStatsService interface {
	StatsInvalidator
	Stats(ctx context.Context, actor Actor, kind models.SourceKind, sourceID uint) (dto.SubmissionStatsResponse, error)
	Roster(ctx context.Context, actor Actor, kind models.SourceKind, sourceID uint) (dto.RosterResponse, error)
}

type submissionStatsService struct {
	store    repository.Store
	rollups  repository.RollupRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSubmissionStatsService constructs the rollup service. cache may be nil.
func NewSubmissionStatsService(store repository.Store, rollups repository.RollupRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) SubmissionStatsService {
	return &submissionStatsService{
		store:    store,
		rollups:  rollups,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "submission_stats_service").Logger(),
		now:      time.Now,
	}
}

func statsCacheKey(kind models.SourceKind, sourceID uint) string {
	return fmt.Sprintf("stats:%s:%d", kind, sourceID)
}

func (s *submissionStatsService) Stats(ctx context.Context, actor Actor, kind models.SourceKind, sourceID uint) (dto.SubmissionStatsResponse, error) {
	cacheKey := statsCacheKey(kind, sourceID)
	tracer := otel.Tracer("github.com/noah-isme/gema-grading-api/internal/service/submission_stats")
	ctx, span := tracer.Start(ctx, "stats.aggregate")
	span.SetAttributes(attribute.String("stats.cache_key", cacheKey))
	defer span.End()

	source, err := loadGradedSource(ctx, s.store, kind, sourceID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "source_lookup_failed")
		return dto.SubmissionStatsResponse{}, err
	}
	if err := authorizeSource(actor, source); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "forbidden")
		return dto.SubmissionStatsResponse{}, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.SubmissionStatsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("stats.cache_hit", true))
				observability.StatsCacheLookups().WithLabelValues("hit").Inc()
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read stats cache")
			span.RecordError(err)
		}
		observability.StatsCacheLookups().WithLabelValues("miss").Inc()
	}

	enrolled, err := s.rollups.CountEnrolledStudents(ctx, kind, sourceID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_enrolled_failed")
		return dto.SubmissionStatsResponse{}, err
	}

	counts, err := s.rollups.CountSubmissions(ctx, kind, sourceID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_submissions_failed")
		return dto.SubmissionStatsResponse{}, err
	}

	stats := dto.SubmissionStatsResponse{
		SourceKind:    string(kind),
		SourceID:      sourceID,
		TotalStudents: enrolled,
		Submitted:     counts.Submitted,
		Graded:        counts.Graded,
		Pending:       counts.Submitted - counts.Graded,
		GeneratedAt:   s.now().UTC(),
	}
	span.SetAttributes(
		attribute.Int64("stats.total_students", stats.TotalStudents),
		attribute.Int64("stats.submitted", stats.Submitted),
		attribute.Int64("stats.graded", stats.Graded),
	)

	if s.cache != nil && s.cacheTTL > 0 {
		payload, err := json.Marshal(stats)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store stats cache")
				span.RecordError(err)
			}
		}
	}

	return stats, nil
}

func (s *submissionStatsService) Roster(ctx context.Context, actor Actor, kind models.SourceKind, sourceID uint) (dto.RosterResponse, error) {
	source, err := loadGradedSource(ctx, s.store, kind, sourceID)
	if err != nil {
		return dto.RosterResponse{}, err
	}
	if err := authorizeSource(actor, source); err != nil {
		return dto.RosterResponse{}, err
	}

	rows, err := s.rollups.ListRoster(ctx, kind, sourceID)
	if err != nil {
		return dto.RosterResponse{}, err
	}

	items := make([]dto.RosterEntryResponse, 0, len(rows))
	for _, row := range rows {
		entry := dto.RosterEntryResponse{
			StudentID:    row.StudentID,
			StudentName:  row.StudentName,
			StudentEmail: row.StudentEmail,
			Status:       dto.SubmissionStatusNotSubmitted,
			SubmissionID: row.SubmissionID,
			TotalScore:   row.TotalScore,
			SubmittedAt:  row.SubmittedAt,
			GradedAt:     row.GradedAt,
		}
		if row.SubmissionID != nil && row.Status != nil {
			entry.Status = *row.Status
		}
		items = append(items, entry)
	}

	return dto.RosterResponse{
		SourceKind: string(kind),
		SourceID:   sourceID,
		Items:      items,
	}, nil
}

func (s *submissionStatsService) Invalidate(ctx context.Context, kind models.SourceKind, sourceID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey(kind, sourceID)).Err(); err != nil {
		s.logger.Warn().Err(err).
			Str("source_kind", string(kind)).
			Uint("source_id", sourceID).
			Msg("failed to invalidate stats cache")
	}
}
