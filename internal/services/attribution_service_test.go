package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yuvraj-bhatia/virio-pulse/internal/domain"
	"github.com/yuvraj-bhatia/virio-pulse/internal/repo"
)

var refNow = time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time { return refNow.AddDate(0, 0, -d) }
func strp(s string) *string   { return &s }
func timep(t time.Time) *time.Time {
	return &t
}

// linksData lets cmp look inside the JSON column.
var linksData = cmp.Transformer("links", func(j datatypes.JSONType[domain.SupportingLinks]) domain.SupportingLinks {
	return j.Data()
})

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newSvc(db *gorm.DB) *AttributionService {
	return &AttributionService{DB: db, Now: func() time.Time { return refNow }}
}

func seedClient(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	if err := db.Create(&domain.Client{ID: id, Name: id}).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
}

func mustCreate(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func storedRows(t *testing.T, db *gorm.DB, clientID string, rangeDays int) []domain.AttributionResult {
	t.Helper()
	var rows []domain.AttributionResult
	if err := db.Where("client_id = ? AND window_range_days = ?", clientID, rangeDays).
		Order("post_id").Find(&rows).Error; err != nil {
		t.Fatalf("read rows: %v", err)
	}
	return rows
}

func TestRecompute_DirectSignalWonOpportunity(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	seedClient(t, db, "c1")

	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "P", ClientID: "c1", ActorID: "a1", PostedAt: timep(daysAgo(3))}))
	mustCreate(t, repo.CreateSignal(ctx, db, &domain.InboundSignal{ID: "S1", ClientID: "c1", PostID: strp("P"), CreatedAt: daysAgo(2)}))
	mustCreate(t, repo.CreateOpportunity(ctx, db, &domain.Opportunity{
		ID: "O1", ClientID: "c1", Amount: 100, Stage: domain.StageClosedWon, InboundSignalID: strp("S1"), CreatedAt: daysAgo(0),
	}))

	res, err := newSvc(db).Recompute(ctx, "c1", 7)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if res.Rows != 1 || res.RangeDays != 7 || !res.ComputedAt.Equal(refNow) {
		t.Fatalf("unexpected result: %+v", res)
	}

	rows := storedRows(t, db, "c1", 7)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.PostID != "P" || r.InfluencedSignalCount != 1 || r.PipelineAmount != 100 || r.RevenueWonAmount != 100 || r.Confidence != domain.ConfidenceHigh {
		t.Fatalf("unexpected row: %+v", r)
	}
	wantLinks := domain.SupportingLinks{
		InboundSignalIDs: []string{"S1"},
		OpportunityIDs:   []string{"O1"},
		MeetingIDs:       []string{},
	}
	if diff := cmp.Diff(wantLinks, r.SupportingLinks.Data()); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestRecompute_UnmatchedSignalIsNotLinked(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	seedClient(t, db, "c1")

	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "P", ClientID: "c1", ActorID: "a1", PostedAt: timep(daysAgo(20))}))
	mustCreate(t, repo.CreateSignal(ctx, db, &domain.InboundSignal{ID: "S2", ClientID: "c1", ActorID: strp("a1"), CreatedAt: daysAgo(1)}))

	if _, err := newSvc(db).Recompute(ctx, "c1", 30); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	for _, r := range storedRows(t, db, "c1", 30) {
		if r.InfluencedSignalCount != 0 || len(r.SupportingLinks.Data().InboundSignalIDs) != 0 {
			t.Fatalf("S2 leaked into %+v", r)
		}
		if r.Confidence != domain.ConfidenceUnattributed {
			t.Fatalf("expected UNATTRIBUTED, got %s", r.Confidence)
		}
	}
}

func TestRecompute_Idempotent(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	seedClient(t, db, "c1")

	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "p1", ClientID: "c1", ActorID: "a1", PostURL: strp("https://www.linkedin.com/posts/one"), PostedAt: timep(daysAgo(4))}))
	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "p2", ClientID: "c1", ActorID: "a2"}))
	mustCreate(t, repo.CreateSignal(ctx, db, &domain.InboundSignal{ID: "s1", ClientID: "c1", EntryPointURL: strp("linkedin.com/posts/one?utm=x"), CreatedAt: daysAgo(1)}))
	mustCreate(t, repo.CreateSignal(ctx, db, &domain.InboundSignal{ID: "s2", ClientID: "c1", ActorID: strp("a1"), CreatedAt: daysAgo(2)}))
	mustCreate(t, repo.CreateMeeting(ctx, db, &domain.Meeting{ID: "m1", ClientID: "c1", InboundSignalID: strp("s2"), CreatedAt: daysAgo(1)}))
	mustCreate(t, repo.CreateOpportunity(ctx, db, &domain.Opportunity{ID: "o1", ClientID: "c1", Amount: 70, MeetingID: strp("m1"), CreatedAt: daysAgo(1)}))

	svc := newSvc(db)
	if _, err := svc.Recompute(ctx, "c1", 30); err != nil {
		t.Fatalf("first Recompute: %v", err)
	}
	first := storedRows(t, db, "c1", 30)

	svc.Now = func() time.Time { return refNow.Add(time.Minute) }
	if _, err := svc.Recompute(ctx, "c1", 30); err != nil {
		t.Fatalf("second Recompute: %v", err)
	}
	second := storedRows(t, db, "c1", 30)

	// Only ComputedAt may differ; row ids survive the upsert.
	ignoreStamp := cmpopts.IgnoreFields(domain.AttributionResult{}, "ComputedAt")
	if diff := cmp.Diff(first, second, ignoreStamp, linksData); diff != "" {
		t.Fatalf("recompute not idempotent (-first +second):\n%s", diff)
	}
	if len(second) != 2 || second[0].PipelineAmount != 70 || second[0].MeetingCount != 1 || second[0].InfluencedSignalCount != 2 {
		t.Fatalf("unexpected rows: %+v", second)
	}
}

func TestRecompute_CleanupOnPostDeletion(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	seedClient(t, db, "c1")

	for _, id := range []string{"p1", "p2", "p3"} {
		mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: id, ClientID: "c1", ActorID: "a1"}))
	}
	svc := newSvc(db)
	if _, err := svc.RecomputeAll(ctx, "c1"); err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}

	mustCreate(t, repo.DeletePost(ctx, db, "c1", "p2"))
	if _, err := svc.RecomputeAll(ctx, "c1"); err != nil {
		t.Fatalf("RecomputeAll after delete: %v", err)
	}

	for _, r := range []int{7, 30, 90} {
		rows := storedRows(t, db, "c1", r)
		if len(rows) != 2 || rows[0].PostID != "p1" || rows[1].PostID != "p3" {
			t.Fatalf("range %d: unexpected rows %+v", r, rows)
		}
	}

	// No posts left: every row goes.
	mustCreate(t, repo.DeletePost(ctx, db, "c1", "p1"))
	mustCreate(t, repo.DeletePost(ctx, db, "c1", "p3"))
	res, err := svc.Recompute(ctx, "c1", 30)
	if err != nil || res.Rows != 0 {
		t.Fatalf("Recompute with no posts = (%+v, %v)", res, err)
	}
	if rows := storedRows(t, db, "c1", 30); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
	if rows := storedRows(t, db, "c1", 7); len(rows) != 2 {
		t.Fatalf("other range must be untouched, got %d", len(rows))
	}
}

func TestRecompute_ClientNotFound_NoWrites(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "p1", ClientID: "ghost", ActorID: "a1"}))

	_, err := newSvc(db).Recompute(ctx, "ghost", 7)
	if !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
	var n int64
	db.Model(&domain.AttributionResult{}).Count(&n)
	if n != 0 {
		t.Fatalf("expected no rows written, got %d", n)
	}
}

func TestRecompute_UnsupportedRange(t *testing.T) {
	svc := newSvc(nil) // must fail before touching storage
	for _, r := range []int{0, 14, 365} {
		if _, err := svc.Recompute(context.Background(), "c1", r); !errors.Is(err, ErrUnsupportedRange) {
			t.Fatalf("range %d: expected ErrUnsupportedRange, got %v", r, err)
		}
	}
}

func TestRecompute_StorageFailureRollsBack(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	seedClient(t, db, "c1")
	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "p1", ClientID: "c1", ActorID: "a1"}))
	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "p2", ClientID: "c1", ActorID: "a1"}))

	svc := newSvc(db)
	if _, err := svc.Recompute(ctx, "c1", 7); err != nil {
		t.Fatalf("seed Recompute: %v", err)
	}
	before := storedRows(t, db, "c1", 7)

	// p2 disappears, so the next run upserts p1 and then fails deleting p2.
	mustCreate(t, repo.DeletePost(ctx, db, "c1", "p2"))
	diskFull := errors.New("disk full")
	err := db.Callback().Delete().Before("gorm:delete").Register("test:fail_results_delete", func(tx *gorm.DB) {
		if tx.Statement.Table == "attribution_results" {
			_ = tx.AddError(diskFull)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	svc.Now = func() time.Time { return refNow.Add(time.Hour) }
	_, err = svc.Recompute(ctx, "c1", 7)
	if !errors.Is(err, ErrStorageFailure) || !errors.Is(err, diskFull) {
		t.Fatalf("expected wrapped storage failure, got %v", err)
	}

	after := storedRows(t, db, "c1", 7)
	if diff := cmp.Diff(before, after, linksData); diff != "" {
		t.Fatalf("failed recompute leaked writes (-before +after):\n%s", diff)
	}
}

func TestRecompute_CanceledContext(t *testing.T) {
	db := newSvcDB(t)
	seedClient(t, db, "c1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSvc(db).Recompute(ctx, "c1", 7)
	if !errors.Is(err, ErrStorageFailure) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled storage failure, got %v", err)
	}
}

func TestRecomputeAll_Ranges(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	seedClient(t, db, "c1")
	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "p1", ClientID: "c1", ActorID: "a1"}))
	// Only the 30 and 90 day windows see this opportunity.
	mustCreate(t, repo.CreateOpportunity(ctx, db, &domain.Opportunity{ID: "o1", ClientID: "c1", Amount: 5, PostID: strp("p1"), CreatedAt: daysAgo(20)}))

	results, err := newSvc(db).RecomputeAll(ctx, "c1")
	if err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []int{7, 30, 90} {
		if results[i].RangeDays != want || results[i].Rows != 1 {
			t.Fatalf("result %d = %+v", i, results[i])
		}
	}
	if got := storedRows(t, db, "c1", 7)[0].PipelineAmount; got != 0 {
		t.Fatalf("7 day pipeline = %d; want 0", got)
	}
	if got := storedRows(t, db, "c1", 30)[0].PipelineAmount; got != 5 {
		t.Fatalf("30 day pipeline = %d; want 5", got)
	}
}

func TestRecompute_SettingsDriveSoftAttribution(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	seedClient(t, db, "c1")
	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "p1", ClientID: "c1", ActorID: "a1", PostedAt: timep(daysAgo(12))}))
	mustCreate(t, repo.CreateSignal(ctx, db, &domain.InboundSignal{ID: "s1", ClientID: "c1", ActorID: strp("a1"), CreatedAt: daysAgo(2)}))
	svc := newSvc(db)

	count := func() int {
		t.Helper()
		if _, err := svc.Recompute(ctx, "c1", 30); err != nil {
			t.Fatalf("Recompute: %v", err)
		}
		return storedRows(t, db, "c1", 30)[0].InfluencedSignalCount
	}

	// Defaults: 7 day window, post is 10 days older than the signal.
	if got := count(); got != 0 {
		t.Fatalf("default settings: count = %d; want 0", got)
	}

	mustCreate(t, repo.SaveSettings(ctx, db, &domain.AttributionSettings{ClientID: "c1", AttributionWindowDays: 14, UseSoftAttribution: true}))
	if got := count(); got != 1 {
		t.Fatalf("14 day window: count = %d; want 1", got)
	}
	if c := storedRows(t, db, "c1", 30)[0].Confidence; c != domain.ConfidenceMedium {
		t.Fatalf("soft match confidence = %s; want MEDIUM", c)
	}

	mustCreate(t, repo.SaveSettings(ctx, db, &domain.AttributionSettings{ClientID: "c1", AttributionWindowDays: 14, UseSoftAttribution: false}))
	if got := count(); got != 0 {
		t.Fatalf("soft disabled: count = %d; want 0", got)
	}
}

func TestRecompute_ChainAcrossWindowAndClients(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	seedClient(t, db, "c1")
	seedClient(t, db, "c2")

	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "p1", ClientID: "c1", ActorID: "a1"}))
	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "p2", ClientID: "c1", ActorID: "a1"}))
	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "p9", ClientID: "c2", ActorID: "a9"}))
	// Old signal and meeting, outside the 7 day window.
	mustCreate(t, repo.CreateSignal(ctx, db, &domain.InboundSignal{ID: "s-old", ClientID: "c1", PostID: strp("p1"), CreatedAt: daysAgo(40)}))
	mustCreate(t, repo.CreateMeeting(ctx, db, &domain.Meeting{ID: "m-old", ClientID: "c1", InboundSignalID: strp("s-old"), CreatedAt: daysAgo(30)}))
	// Another client's signal pointing at its own post.
	mustCreate(t, repo.CreateSignal(ctx, db, &domain.InboundSignal{ID: "s-c2", ClientID: "c2", PostID: strp("p9"), CreatedAt: daysAgo(1)}))

	// The old signal is not resolved; the direct post takes the credit.
	mustCreate(t, repo.CreateOpportunity(ctx, db, &domain.Opportunity{ID: "o-direct", ClientID: "c1", Amount: 500, InboundSignalID: strp("s-old"), PostID: strp("p2"), CreatedAt: daysAgo(1)}))
	mustCreate(t, repo.CreateOpportunity(ctx, db, &domain.Opportunity{ID: "o-meeting", ClientID: "c1", Amount: 300, MeetingID: strp("m-old"), CreatedAt: daysAgo(1)}))
	mustCreate(t, repo.CreateOpportunity(ctx, db, &domain.Opportunity{ID: "o-foreign", ClientID: "c1", Amount: 1000, InboundSignalID: strp("s-c2"), CreatedAt: daysAgo(1)}))

	if _, err := newSvc(db).Recompute(ctx, "c1", 7); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	rows := storedRows(t, db, "c1", 7)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if r := rows[0]; r.PostID != "p1" || r.PipelineAmount != 0 || r.InfluencedSignalCount != 0 || r.Confidence != domain.ConfidenceUnattributed {
		t.Fatalf("p1 = %+v; want zeroed UNATTRIBUTED", r)
	}
	r := rows[1]
	if r.PostID != "p2" || r.PipelineAmount != 500 || r.Confidence != domain.ConfidenceHigh {
		t.Fatalf("p2 = %+v; want pipeline 500 HIGH", r)
	}
	if diff := cmp.Diff([]string{"o-direct"}, r.SupportingLinks.Data().OpportunityIDs); diff != "" {
		t.Fatalf("opportunity links (-want +got):\n%s", diff)
	}
	if rows := storedRows(t, db, "c2", 7); len(rows) != 0 {
		t.Fatalf("recompute of c1 wrote rows for c2: %+v", rows)
	}
}

func TestRecompute_DirectPostOutranksMeeting(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	seedClient(t, db, "c1")

	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "p1", ClientID: "c1", ActorID: "a1", PostURL: strp("https://www.linkedin.com/posts/one")}))
	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "p2", ClientID: "c1", ActorID: "a1"}))
	mustCreate(t, repo.CreateSignal(ctx, db, &domain.InboundSignal{ID: "s1", ClientID: "c1", EntryPointURL: strp("https://linkedin.com/posts/one"), CreatedAt: daysAgo(2)}))
	mustCreate(t, repo.CreateMeeting(ctx, db, &domain.Meeting{ID: "m1", ClientID: "c1", InboundSignalID: strp("s1"), CreatedAt: daysAgo(1)}))
	mustCreate(t, repo.CreateOpportunity(ctx, db, &domain.Opportunity{ID: "o1", ClientID: "c1", Amount: 500, MeetingID: strp("m1"), PostID: strp("p2"), CreatedAt: daysAgo(1)}))

	if _, err := newSvc(db).Recompute(ctx, "c1", 7); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	rows := storedRows(t, db, "c1", 7)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if r := rows[0]; r.PostID != "p1" || r.PipelineAmount != 0 || r.MeetingCount != 1 || r.Confidence != domain.ConfidenceMedium {
		t.Fatalf("p1 = %+v; want the meeting only, MEDIUM", r)
	}
	if r := rows[1]; r.PostID != "p2" || r.PipelineAmount != 500 || r.Confidence != domain.ConfidenceHigh {
		t.Fatalf("p2 = %+v; want pipeline 500 HIGH", r)
	}
}

// newFileSvcDB opens a WAL-mode SQLite file so a writer can commit while a
// recompute holds its read transaction.
func newFileSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "pulse.db") + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// holdFirstSnapshot blocks the first recompute of svc right after its
// snapshot read until release is closed. held is closed once it blocks; calls
// counts every snapshot taken.
func holdFirstSnapshot(svc *AttributionService) (held, release chan struct{}, calls *atomic.Int32) {
	held, release, calls = make(chan struct{}), make(chan struct{}), new(atomic.Int32)
	svc.afterSnapshot = func(context.Context, string, int) {
		if calls.Add(1) == 1 {
			close(held)
			<-release
		}
	}
	return held, release, calls
}

func TestRecompute_ConcurrentCallSeesItsOwnChange(t *testing.T) {
	db := newFileSvcDB(t)
	ctx := context.Background()
	seedClient(t, db, "c1")
	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "P", ClientID: "c1", ActorID: "a1"}))

	svc := newSvc(db)
	held, release, calls := holdFirstSnapshot(svc)

	ctxA, cancelA := context.WithCancel(ctx)
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Recompute(ctxA, "c1", 7)
		errA <- err
	}()
	<-held

	// Committed after A's snapshot; A cannot see it.
	mustCreate(t, repo.CreateSignal(ctx, db, &domain.InboundSignal{ID: "S-new", ClientID: "c1", PostID: strp("P"), CreatedAt: daysAgo(1)}))

	type outcome struct {
		res RecomputeResult
		err error
	}
	doneB := make(chan outcome, 1)
	go func() {
		res, err := svc.Recompute(context.Background(), "c1", 7)
		doneB <- outcome{res, err}
	}()
	time.Sleep(50 * time.Millisecond)

	// A's caller gives up; B has its own context and must not fail with it.
	cancelA()
	close(release)

	if err := <-errA; !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("A: expected storage failure after cancel, got %v", err)
	}
	b := <-doneB
	if b.err != nil {
		t.Fatalf("B: %v", b.err)
	}
	if b.res.Rows != 1 {
		t.Fatalf("B result = %+v", b.res)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("snapshots taken = %d; want 2", got)
	}

	rows := storedRows(t, db, "c1", 7)
	if len(rows) != 1 || rows[0].InfluencedSignalCount != 1 {
		t.Fatalf("stored rows miss S-new: %+v", rows)
	}
	if diff := cmp.Diff([]string{"S-new"}, rows[0].SupportingLinks.Data().InboundSignalIDs); diff != "" {
		t.Fatalf("signal links (-want +got):\n%s", diff)
	}
}

func TestRecompute_WaitingCallerHonorsItsContext(t *testing.T) {
	db := newFileSvcDB(t)
	ctx := context.Background()
	seedClient(t, db, "c1")
	mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: "P", ClientID: "c1", ActorID: "a1"}))

	svc := newSvc(db)
	held, release, calls := holdFirstSnapshot(svc)

	errA := make(chan error, 1)
	go func() {
		_, err := svc.Recompute(ctx, "c1", 7)
		errA <- err
	}()
	<-held

	ctxB, cancelB := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancelB()
	if _, err := svc.Recompute(ctxB, "c1", 7); !errors.Is(err, ErrStorageFailure) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("B: expected deadline exceeded while waiting, got %v", err)
	}

	// Other windows of the same client use their own lock.
	if svc.pairLock("c1", 7) != svc.pairLock("c1", 7) || svc.pairLock("c1", 7) == svc.pairLock("c1", 30) {
		t.Fatalf("pair locks must be per (client, range)")
	}

	close(release)
	if err := <-errA; err != nil {
		t.Fatalf("A: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("snapshots taken = %d; want 2", got)
	}
}

func TestRecomputeClients(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	for _, id := range []string{"c1", "c2"} {
		seedClient(t, db, id)
		mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: id + "-p", ClientID: id, ActorID: "a"}))
	}
	svc := newSvc(db)

	ids, err := svc.ClientIDs(ctx)
	if err != nil {
		t.Fatalf("ClientIDs: %v", err)
	}
	out, err := svc.RecomputeClients(ctx, append(ids, "ghost"), 1)
	if !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected joined ErrClientNotFound, got %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(out))
	}
	for _, o := range out[:2] {
		if o.Err != nil || len(o.Results) != 3 {
			t.Fatalf("client %s: %+v", o.ClientID, o)
		}
	}
	if out[2].ClientID != "ghost" || out[2].Err == nil {
		t.Fatalf("ghost outcome: %+v", out[2])
	}
}

func TestListResults(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	seedClient(t, db, "c1")
	for i, id := range []string{"p1", "p2", "p3"} {
		mustCreate(t, repo.CreatePost(ctx, db, &domain.ContentPost{ID: id, ClientID: "c1", ActorID: "a1"}))
		mustCreate(t, repo.CreateOpportunity(ctx, db, &domain.Opportunity{ClientID: "c1", Amount: int64(10 * (i + 1)), PostID: strp(id), CreatedAt: daysAgo(1)}))
	}
	svc := newSvc(db)

	items, total, err := svc.ListResults(ctx, "c1", 30, 1, 10)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("before recompute: (%v, %d, %v)", items, total, err)
	}
	if _, err := svc.Recompute(ctx, "c1", 30); err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	items, total, err = svc.ListResults(ctx, "c1", 30, 1, 2)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if total != 3 || len(items) != 2 || items[0].PostID != "p3" || items[1].PostID != "p2" {
		t.Fatalf("page 1 = %+v (total %d)", items, total)
	}
	items, _, _ = svc.ListResults(ctx, "c1", 30, 2, 2)
	if len(items) != 1 || items[0].PostID != "p1" {
		t.Fatalf("page 2 = %+v", items)
	}

	count, last, err := svc.ResultsStats(ctx, "c1", 30)
	if err != nil || count != 3 || last == nil || !last.Equal(refNow) {
		t.Fatalf("ResultsStats = (%d, %v, %v)", count, last, err)
	}

	if _, _, err := svc.ListResults(ctx, "ghost", 30, 1, 10); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
	if _, _, err := svc.ListResults(ctx, "c1", 14, 1, 10); !errors.Is(err, ErrUnsupportedRange) {
		t.Fatalf("expected ErrUnsupportedRange, got %v", err)
	}
}
