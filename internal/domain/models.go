// Package domain defines the persistence models for clients, content posts,
// inbound signals, meetings, opportunities and the materialized attribution
// rollups derived from them. These types are mapped with GORM and form the
// core data layer of the attribution engine.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Post lifecycle states.
const (
	PostStatusDraft        = "draft"
	PostStatusNeedsDetails = "needs_details"
	PostStatusReady        = "ready"
	PostStatusPosted       = "posted"
)

// Opportunity stages.
const (
	StageQualified   = "qualified"
	StageProposal    = "proposal"
	StageNegotiation = "negotiation"
	StageClosedWon   = "closed_won"
	StageClosedLost  = "closed_lost"
)

// Meeting outcomes.
const (
	OutcomeScheduled   = "scheduled"
	OutcomeHeld        = "held"
	OutcomeNoShow      = "no_show"
	OutcomeRescheduled = "rescheduled"
)

// Client is a tenant whose content and pipeline are attributed in isolation.
type Client struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Client.
func (Client) TableName() string { return "clients" }

// ContentPost is an external piece of content authored by an actor on behalf
// of a client. A post may exist before it is fully detailed, so both the URL
// and the posted-at timestamp are optional.
//
// Fields:
//   - ActorID: authoring executive; soft attribution matches on it.
//   - PostURL: raw permalink as imported (normalized at resolution time).
//   - PostedAt: nil while the post is a draft or needs details.
//   - Status: draft | needs_details | ready | posted.
type ContentPost struct {
	ID        string     `json:"id"                  gorm:"type:char(36);primaryKey"`
	ClientID  string     `json:"client_id"           gorm:"type:char(36);not null;index:idx_posts_client"`
	ActorID   string     `json:"actor_id"            gorm:"type:varchar(64);not null;index:idx_posts_actor"`
	PostURL   *string    `json:"post_url,omitempty"  gorm:"type:text"`
	PostedAt  *time.Time `json:"posted_at,omitempty" gorm:"index:idx_posts_actor"`
	Theme     string     `json:"theme"               gorm:"type:varchar(128);not null;default:''"`
	Hook      string     `json:"hook"                gorm:"type:text;not null;default:''"`
	Status    string     `json:"status"              gorm:"type:varchar(16);not null;default:'draft'"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ContentPost.
func (ContentPost) TableName() string { return "content_posts" }

// InboundSignal is a captured demand event. Its attribution is derived on
// every recompute and never stored on the row itself.
type InboundSignal struct {
	ID            string    `json:"id"                        gorm:"type:char(36);primaryKey"`
	ClientID      string    `json:"client_id"                 gorm:"type:char(36);not null;index:idx_signals_client_created,priority:1"`
	CreatedAt     time.Time `json:"created_at"                gorm:"index:idx_signals_client_created,priority:2"`
	PostID        *string   `json:"post_id,omitempty"         gorm:"type:char(36)"`
	ActorID       *string   `json:"actor_id,omitempty"        gorm:"type:varchar(64)"`
	EntryPointURL *string   `json:"entry_point_url,omitempty" gorm:"type:text"`
	Source        string    `json:"source"                    gorm:"type:varchar(64);not null;default:''"`
}

// TableName returns the database table name for InboundSignal.
func (InboundSignal) TableName() string { return "inbound_signals" }

// Meeting is a scheduled sales meeting, optionally sourced from one signal.
type Meeting struct {
	ID              string     `json:"id"                          gorm:"type:char(36);primaryKey"`
	ClientID        string     `json:"client_id"                   gorm:"type:char(36);not null;index:idx_meetings_client_created,priority:1"`
	InboundSignalID *string    `json:"inbound_signal_id,omitempty" gorm:"type:char(36)"`
	Outcome         string     `json:"outcome"                     gorm:"type:varchar(16);not null;default:'scheduled'"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"                  gorm:"index:idx_meetings_client_created,priority:2"`
}

// TableName returns the database table name for Meeting.
func (Meeting) TableName() string { return "meetings" }

// Opportunity is a pipeline record. It may point directly at a post, at the
// signal it came from, and/or at the meeting that produced it.
type Opportunity struct {
	ID              string     `json:"id"                          gorm:"type:char(36);primaryKey"`
	ClientID        string     `json:"client_id"                   gorm:"type:char(36);not null;index:idx_opps_client_created,priority:1"`
	Amount          int64      `json:"amount"                      gorm:"not null;default:0"`
	Stage           string     `json:"stage"                       gorm:"type:varchar(16);not null;default:'qualified'"`
	PostID          *string    `json:"post_id,omitempty"           gorm:"type:char(36)"`
	InboundSignalID *string    `json:"inbound_signal_id,omitempty" gorm:"type:char(36)"`
	MeetingID       *string    `json:"meeting_id,omitempty"        gorm:"type:char(36)"`
	CreatedAt       time.Time  `json:"created_at"                  gorm:"index:idx_opps_client_created,priority:2"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

// TableName returns the database table name for Opportunity.
func (Opportunity) TableName() string { return "opportunities" }

// IsClosedWon reports whether the opportunity counts toward won revenue.
func (o Opportunity) IsClosedWon() bool { return o.Stage == StageClosedWon }

// AttributionSettings holds the per-client knobs for soft attribution.
// A client without a row uses DefaultAttributionSettings.
type AttributionSettings struct {
	ClientID              string    `json:"client_id"               gorm:"type:char(36);primaryKey"`
	AttributionWindowDays int       `json:"attribution_window_days" gorm:"not null;default:7;check:attribution_window_days IN (7,14)"`
	UseSoftAttribution    bool      `json:"use_soft_attribution"    gorm:"not null"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// TableName returns the database table name for AttributionSettings.
func (AttributionSettings) TableName() string { return "attribution_settings" }

// DefaultAttributionSettings returns the settings applied when a client has
// never saved its own.
func DefaultAttributionSettings(clientID string) AttributionSettings {
	return AttributionSettings{
		ClientID:              clientID,
		AttributionWindowDays: 7,
		UseSoftAttribution:    true,
	}
}

// SupportingLinks lists the records that contributed to a rollup row.
// Each slice is sorted ascending so identical inputs serialize identically.
type SupportingLinks struct {
	InboundSignalIDs []string `json:"inbound_signal_ids"`
	OpportunityIDs   []string `json:"opportunity_ids"`
	MeetingIDs       []string `json:"meeting_ids"`
}

// AttributionResult is the materialized per-post rollup for one client and
// reporting window. Rows are disposable: every recompute rewrites them.
//
// Fields:
//   - (ClientID, PostID, WindowRangeDays): unique key.
//   - InfluencedSignalCount: attributed inbound signals in the window.
//   - MeetingCount: attributed meetings in the window.
//   - PipelineAmount / RevenueWonAmount: sums of attributed opportunity amounts
//     (any stage / closed_won only).
//   - Confidence: highest tier among contributing signals and opportunities.
type AttributionResult struct {
	ID                    string                              `json:"id"                      gorm:"type:char(36);primaryKey"`
	ClientID              string                              `json:"client_id"               gorm:"type:char(36);not null;uniqueIndex:ux_attr_client_post_range,priority:1"`
	PostID                string                              `json:"post_id"                 gorm:"type:char(36);not null;uniqueIndex:ux_attr_client_post_range,priority:2"`
	WindowRangeDays       int                                 `json:"window_range_days"       gorm:"not null;uniqueIndex:ux_attr_client_post_range,priority:3;check:window_range_days IN (7,30,90)"`
	ComputedAt            time.Time                           `json:"computed_at"             gorm:"not null"`
	InfluencedSignalCount int                                 `json:"influenced_signal_count" gorm:"not null;default:0"`
	MeetingCount          int                                 `json:"meeting_count"           gorm:"not null;default:0"`
	PipelineAmount        int64                               `json:"pipeline_amount"         gorm:"not null;default:0"`
	RevenueWonAmount      int64                               `json:"revenue_won_amount"      gorm:"not null;default:0"`
	Confidence            Confidence                          `json:"confidence"              gorm:"type:varchar(16);not null;check:confidence IN ('HIGH','MEDIUM','LOW','UNATTRIBUTED')"`
	SupportingLinks       datatypes.JSONType[SupportingLinks] `json:"supporting_links"`
}

// TableName returns the database table name for AttributionResult.
func (AttributionResult) TableName() string { return "attribution_results" }
