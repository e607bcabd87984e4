// Package services – AttributionService
//
// This file implements AttributionService, the recompute orchestrator. For a
// client and reporting window it loads a consistent snapshot of posts,
// signals, meetings and opportunities inside one transaction, runs the pure
// attribution engine over it, and replaces the materialized rollups of that
// (client, window) pair atomically.
//
// Recomputes of the same (client, window) pair run one after another, each
// over its own snapshot, so the last one to finish reflects every change that
// committed before it started. Different pairs are independent and may run
// in parallel (see RecomputeClients).
//
// Observability: all public methods are OpenTelemetry-instrumented; every
// recompute emits one structured log line and Prometheus metrics.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yuvraj-bhatia/virio-pulse/internal/attribution"
	"github.com/yuvraj-bhatia/virio-pulse/internal/domain"
	"github.com/yuvraj-bhatia/virio-pulse/internal/repo"
	"github.com/yuvraj-bhatia/virio-pulse/internal/utils"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RecomputeResult summarizes one successful recompute.
type RecomputeResult struct {
	ClientID   string    `json:"-"`
	RangeDays  int       `json:"range_days"  example:"30"`
	ComputedAt time.Time `json:"computed_at" example:"2026-02-10T15:00:00Z"`
	// Rows is the number of rollup rows now stored for the pair.
	Rows int `json:"rows" example:"12"`
}

// ClientRecompute is the outcome of recomputing every window of one client.
type ClientRecompute struct {
	ClientID string
	Results  []RecomputeResult
	Err      error
}

// AttributionService recomputes and serves materialized attribution rollups.
type AttributionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// Now returns the reference time of a recompute. Defaults to time.Now.
	Now func() time.Time
	// Location sets calendar-day boundaries of reporting windows. Defaults to UTC.
	Location *time.Location
	// Timeout bounds a single (client, window) recompute; 0 means none.
	Timeout time.Duration
	// Log receives one line per recompute. The zero value discards.
	Log zerolog.Logger

	mu    sync.Mutex
	pairs map[string]*semaphore.Weighted

	// afterSnapshot, when set, runs inside the transaction once the snapshot
	// is read.
	afterSnapshot func(ctx context.Context, clientID string, rangeDays int)
}

// NewAttributionService constructs an AttributionService logging to the
// global zerolog logger.
func NewAttributionService(db *gorm.DB) *AttributionService {
	return &AttributionService{
		DB:       db,
		Now:      time.Now,
		Location: time.UTC,
		Log:      log.Logger.With().Str("component", "attribution").Logger(),
	}
}

func (s *AttributionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AttributionService) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

// txOptions asks PostgreSQL for a repeatable-read snapshot. SQLite
// transactions are already serialized.
func (s *AttributionService) txOptions() []*sql.TxOptions {
	if repo.IsPostgres(s.DB) {
		return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead}}
	}
	return nil
}

// Recompute rebuilds the rollups of (clientID, rangeDays) from current data.
//
// On success the stored rows for the pair are exactly one per existing post
// of the client, all stamped with the same ComputedAt. ErrClientNotFound and
// ErrUnsupportedRange leave storage untouched; any database error rolls the
// whole recompute back and is returned wrapped in ErrStorageFailure.
func (s *AttributionService) Recompute(ctx context.Context, clientID string, rangeDays int) (RecomputeResult, error) {
	tr := otel.Tracer("services/AttributionService")
	ctx, span := tr.Start(ctx, "Recompute",
		trace.WithAttributes(
			attribute.String("client.id", clientID),
			attribute.Int("window.range_days", rangeDays),
		),
	)
	defer span.End()

	if !attribution.IsSupportedRange(rangeDays) {
		return RecomputeResult{}, ErrUnsupportedRange
	}

	sem := s.pairLock(clientID, rangeDays)
	waitStart := time.Now()
	if err := sem.Acquire(ctx, 1); err != nil {
		err = storageErr(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return RecomputeResult{}, err
	}
	defer sem.Release(1)
	span.SetAttributes(attribute.Int64("recompute.wait_ms", time.Since(waitStart).Milliseconds()))

	res, err := s.recompute(ctx, clientID, rangeDays)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return RecomputeResult{}, err
	}
	span.SetAttributes(attribute.Int("recompute.rows", res.Rows))
	return res, nil
}

// pairLock returns the lock serializing recomputes of (clientID, rangeDays).
func (s *AttributionService) pairLock(clientID string, rangeDays int) *semaphore.Weighted {
	key := fmt.Sprintf("%s:%d", clientID, rangeDays)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pairs == nil {
		s.pairs = make(map[string]*semaphore.Weighted)
	}
	sem, ok := s.pairs[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		s.pairs[key] = sem
	}
	return sem
}

// RecomputeAll recomputes 7, 30 and 90 in sequence. It stops at the first
// failure and returns the windows completed so far.
func (s *AttributionService) RecomputeAll(ctx context.Context, clientID string) ([]RecomputeResult, error) {
	tr := otel.Tracer("services/AttributionService")
	ctx, span := tr.Start(ctx, "RecomputeAll",
		trace.WithAttributes(attribute.String("client.id", clientID)),
	)
	defer span.End()

	out := make([]RecomputeResult, 0, len(attribution.SupportedRanges))
	for _, r := range attribution.SupportedRanges {
		res, err := s.Recompute(ctx, clientID, r)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

// RecomputeClients runs RecomputeAll for every client in ids with at most
// parallelism clients in flight (1 when <= 0). A failing client does not stop
// the others; outcomes are returned in the order of ids and the joined error
// of all failures is returned alongside.
func (s *AttributionService) RecomputeClients(ctx context.Context, ids []string, parallelism int) ([]ClientRecompute, error) {
	tr := otel.Tracer("services/AttributionService")
	ctx, span := tr.Start(ctx, "RecomputeClients",
		trace.WithAttributes(
			attribute.Int("clients", len(ids)),
			attribute.Int("parallelism", parallelism),
		),
	)
	defer span.End()

	if parallelism <= 0 {
		parallelism = 1
	}
	out := make([]ClientRecompute, len(ids))

	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, id := range ids {
		g.Go(func() error {
			res, err := s.RecomputeAll(ctx, id)
			if err != nil {
				err = fmt.Errorf("client %s: %w", id, err)
			}
			out[i] = ClientRecompute{ClientID: id, Results: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, o := range out {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return out, errors.Join(errs...)
}

// ClientIDs lists every known client id in ascending order.
func (s *AttributionService) ClientIDs(ctx context.Context) ([]string, error) {
	ids, err := repo.ListClientIDs(ctx, s.DB)
	if err != nil {
		return nil, storageErr(err)
	}
	return ids, nil
}

// ListResults returns a page of the stored rollups of (clientID, rangeDays),
// highest pipeline first, and the total row count.
func (s *AttributionService) ListResults(ctx context.Context, clientID string, rangeDays, page, pageSize int) ([]domain.AttributionResult, int64, error) {
	tr := otel.Tracer("services/AttributionService")
	ctx, span := tr.Start(ctx, "ListResults",
		trace.WithAttributes(
			attribute.String("client.id", clientID),
			attribute.Int("window.range_days", rangeDays),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if !attribution.IsSupportedRange(rangeDays) {
		return nil, 0, ErrUnsupportedRange
	}
	page, pageSize = utils.ClampPage(page, pageSize)

	ok, err := repo.ClientExists(ctx, s.DB, clientID)
	if err != nil {
		return nil, 0, storageErr(err)
	}
	if !ok {
		return nil, 0, ErrClientNotFound
	}

	total, err := repo.CountResults(ctx, s.DB, clientID, rangeDays)
	if err != nil {
		return nil, 0, storageErr(err)
	}
	if total == 0 {
		return []domain.AttributionResult{}, 0, nil
	}
	items, err := repo.ListResultsPage(ctx, s.DB, clientID, rangeDays, utils.Offset(page, pageSize), pageSize)
	if err != nil {
		return nil, 0, storageErr(err)
	}
	return items, total, nil
}

// ResultsStats returns the row count and latest ComputedAt of the stored
// rollups of (clientID, rangeDays), for conditional responses.
func (s *AttributionService) ResultsStats(ctx context.Context, clientID string, rangeDays int) (int64, *time.Time, error) {
	count, last, err := repo.ResultsStats(ctx, s.DB, clientID, rangeDays)
	if err != nil {
		return 0, nil, storageErr(err)
	}
	return count, last, nil
}

// recompute performs one run and records its metrics and log line.
func (s *AttributionService) recompute(ctx context.Context, clientID string, rangeDays int) (RecomputeResult, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	now := s.now()
	win := attribution.NewWindow(now, rangeDays, s.location())
	res := RecomputeResult{ClientID: clientID, RangeDays: rangeDays, ComputedAt: now.UTC()}

	var stale int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.ClientExists(ctx, tx, clientID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrClientNotFound
		}

		snap, err := loadSnapshot(ctx, tx, clientID, win)
		if err != nil {
			return err
		}
		if s.afterSnapshot != nil {
			s.afterSnapshot(ctx, clientID, rangeDays)
		}
		rows := toResults(clientID, rangeDays, res.ComputedAt, attribution.Compute(snap))

		if err := repo.UpsertResults(ctx, tx, rows); err != nil {
			return err
		}
		if stale, err = repo.DeleteStaleResults(ctx, tx, clientID, rangeDays); err != nil {
			return err
		}
		res.Rows = len(rows)

		// A caller that gave up must not see its recompute committed.
		return ctx.Err()
	}, s.txOptions()...)

	took := time.Since(start)
	lg := s.Log.With().
		Str("client_id", clientID).
		Int("range_days", rangeDays).
		Dur("took", took).
		Logger()

	switch {
	case err == nil:
		observeRecompute(rangeDays, outcomeOK, res.Rows, took)
		lg.Info().
			Int("rows", res.Rows).
			Int64("stale_deleted", stale).
			Time("window_start", win.Start).
			Time("window_end", win.End).
			Msg("attribution recomputed")
		return res, nil
	case errors.Is(err, ErrClientNotFound):
		observeRecompute(rangeDays, outcomeNotFound, 0, took)
		lg.Warn().Msg("attribution recompute: client not found")
		return RecomputeResult{}, ErrClientNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		observeRecompute(rangeDays, outcomeCanceled, 0, took)
		lg.Warn().Err(err).Msg("attribution recompute aborted")
		return RecomputeResult{}, storageErr(err)
	default:
		observeRecompute(rangeDays, outcomeStorageFailure, 0, took)
		lg.Error().Err(err).Msg("attribution recompute failed")
		return RecomputeResult{}, storageErr(err)
	}
}

// loadSnapshot reads everything a recompute needs for clientID and win.
// Signals, meetings and opportunities are limited to those created in win;
// references to older records are left dangling.
func loadSnapshot(ctx context.Context, tx *gorm.DB, clientID string, win attribution.Window) (attribution.Snapshot, error) {
	snap := attribution.Snapshot{ClientID: clientID, Window: win}

	settings := domain.DefaultAttributionSettings(clientID)
	stored, err := repo.GetSettings(ctx, tx, clientID)
	switch {
	case err == nil:
		settings = *stored
	case !errors.Is(err, repo.ErrNotFound):
		return snap, err
	}
	snap.Options = attribution.OptionsFromSettings(settings)

	if snap.Posts, err = repo.ListPosts(ctx, tx, clientID); err != nil {
		return snap, err
	}
	if snap.Signals, err = repo.ListSignalsCreatedIn(ctx, tx, clientID, win.Start, win.End); err != nil {
		return snap, err
	}
	if snap.Meetings, err = repo.ListMeetingsCreatedIn(ctx, tx, clientID, win.Start, win.End); err != nil {
		return snap, err
	}
	if snap.Opportunities, err = repo.ListOpportunitiesCreatedIn(ctx, tx, clientID, win.Start, win.End); err != nil {
		return snap, err
	}
	return snap, nil
}

// toResults maps engine rollups to storable rows stamped with computedAt.
func toResults(clientID string, rangeDays int, computedAt time.Time, rollups []attribution.Rollup) []domain.AttributionResult {
	out := make([]domain.AttributionResult, 0, len(rollups))
	for _, r := range rollups {
		out = append(out, domain.AttributionResult{
			ID:                    uuid.NewString(),
			ClientID:              clientID,
			PostID:                r.PostID,
			WindowRangeDays:       rangeDays,
			ComputedAt:            computedAt,
			InfluencedSignalCount: r.InfluencedSignalCount,
			MeetingCount:          r.MeetingCount,
			PipelineAmount:        r.PipelineAmount,
			RevenueWonAmount:      r.RevenueWonAmount,
			Confidence:            r.Confidence,
			SupportingLinks:       datatypes.NewJSONType(r.Links),
		})
	}
	return out
}
