package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(Client{}).TableName():              "clients",
		(ContentPost{}).TableName():         "content_posts",
		(InboundSignal{}).TableName():       "inbound_signals",
		(Meeting{}).TableName():             "meetings",
		(Opportunity{}).TableName():         "opportunities",
		(AttributionSettings{}).TableName(): "attribution_settings",
		(AttributionResult{}).TableName():   "attribution_results",
		(Idempotency{}).TableName():         "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_UniqueRollupKey(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&AttributionResult{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if !db.Migrator().HasIndex(&AttributionResult{}, "ux_attr_client_post_range") {
		t.Fatalf("expected unique index ux_attr_client_post_range")
	}

	now := time.Now().UTC()
	row := AttributionResult{
		ID:              "r1",
		ClientID:        "c1",
		PostID:          "p1",
		WindowRangeDays: 7,
		ComputedAt:      now,
		Confidence:      ConfidenceHigh,
		SupportingLinks: datatypes.NewJSONType(SupportingLinks{InboundSignalIDs: []string{"s1"}}),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}

	dup := row
	dup.ID = "r2"
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("expected unique violation for duplicate (client, post, range)")
	}

	other := row
	other.ID = "r3"
	other.WindowRangeDays = 30
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("same post in another range should insert: %v", err)
	}

	var got AttributionResult
	if err := db.First(&got, "id = ?", "r1").Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	links := got.SupportingLinks.Data()
	if len(links.InboundSignalIDs) != 1 || links.InboundSignalIDs[0] != "s1" {
		t.Fatalf("supporting links round-trip mismatch: %+v", links)
	}
}

func TestSettings_SoftAttributionFalsePersists(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&AttributionSettings{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	s := AttributionSettings{ClientID: "c1", AttributionWindowDays: 14, UseSoftAttribution: false}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	var got AttributionSettings
	if err := db.First(&got, "client_id = ?", "c1").Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.UseSoftAttribution || got.AttributionWindowDays != 14 {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestDefaultAttributionSettings(t *testing.T) {
	s := DefaultAttributionSettings("c9")
	if s.ClientID != "c9" || s.AttributionWindowDays != 7 || !s.UseSoftAttribution {
		t.Fatalf("unexpected defaults: %+v", s)
	}
}

func TestOpportunity_IsClosedWon(t *testing.T) {
	if !(Opportunity{Stage: StageClosedWon}).IsClosedWon() {
		t.Fatalf("closed_won should count as won")
	}
	for _, st := range []string{StageQualified, StageProposal, StageNegotiation, StageClosedLost} {
		if (Opportunity{Stage: st}).IsClosedWon() {
			t.Fatalf("%s should not count as won", st)
		}
	}
}
