package attribution

import (
	"sort"
	"time"

	"github.com/yuvraj-bhatia/virio-pulse/internal/domain"
)

// Snapshot is everything one recompute reads for a client and window.
// Records created outside Window are ignored.
type Snapshot struct {
	ClientID      string
	Window        Window
	Options       Options
	Posts         []domain.ContentPost
	Signals       []domain.InboundSignal
	Meetings      []domain.Meeting
	Opportunities []domain.Opportunity
}

// Rollup is the aggregate credit of one post within a window.
type Rollup struct {
	PostID                string
	InfluencedSignalCount int
	MeetingCount          int
	PipelineAmount        int64
	RevenueWonAmount      int64
	Confidence            domain.Confidence
	Links                 domain.SupportingLinks
}

// Resolutions holds the per-record outcome of the resolve and propagate steps.
type Resolutions struct {
	Signals       map[string]Resolution
	Meetings      map[string]Resolution
	Opportunities map[string]Resolution
}

// Resolve runs the signal resolver and the chain propagator over s. Only
// in-window signals and meetings resolve, so a reference to an older record
// behaves like a missing one.
func Resolve(s Snapshot, idx *PostIndex) Resolutions {
	signals := ResolveSignals(inWindow(s.Window, s.Signals, signalCreated), idx, s.Options)
	meetings := ResolveMeetings(inWindow(s.Window, s.Meetings, meetingCreated), signals)
	return Resolutions{
		Signals:       signals,
		Meetings:      meetings,
		Opportunities: ResolveOpportunities(s.Opportunities, idx, signals, meetings),
	}
}

// Compute resolves, propagates and aggregates s into one rollup per post,
// sorted by post id. A client without posts yields no rollups.
func Compute(s Snapshot) []Rollup {
	idx := NewPostIndex(s.ClientID, s.Posts)
	return Aggregate(s, idx, Resolve(s, idx))
}

// Aggregate folds resolutions of in-window records into per-post rollups.
// Every indexed post gets a row, zeroed and UNATTRIBUTED when nothing
// contributed to it.
func Aggregate(s Snapshot, idx *PostIndex, res Resolutions) []Rollup {
	if idx.Len() == 0 {
		return nil
	}

	type acc struct {
		Rollup
		tiers []domain.Confidence
	}
	rows := make(map[string]*acc, idx.Len())
	for _, id := range idx.PostIDs() {
		rows[id] = &acc{Rollup: Rollup{PostID: id}}
	}
	seen := make(map[string]struct{})
	fresh := func(kind, id string) bool {
		k := kind + ":" + id
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	}
	credit := func(r Resolution) *acc {
		if !r.Attributed() {
			return nil
		}
		return rows[r.PostID]
	}

	for _, sig := range s.Signals {
		if !s.Window.Contains(sig.CreatedAt) || !fresh("s", sig.ID) {
			continue
		}
		row := credit(res.Signals[sig.ID])
		if row == nil {
			continue
		}
		row.InfluencedSignalCount++
		row.tiers = append(row.tiers, res.Signals[sig.ID].Confidence)
		row.Links.InboundSignalIDs = append(row.Links.InboundSignalIDs, sig.ID)
	}

	for _, m := range s.Meetings {
		if !s.Window.Contains(m.CreatedAt) || !fresh("m", m.ID) {
			continue
		}
		row := credit(res.Meetings[m.ID])
		if row == nil {
			continue
		}
		row.MeetingCount++
		row.Links.MeetingIDs = append(row.Links.MeetingIDs, m.ID)
	}

	for _, o := range s.Opportunities {
		if !s.Window.Contains(o.CreatedAt) || !fresh("o", o.ID) {
			continue
		}
		row := credit(res.Opportunities[o.ID])
		if row == nil {
			continue
		}
		row.PipelineAmount += o.Amount
		if o.IsClosedWon() {
			row.RevenueWonAmount += o.Amount
		}
		row.tiers = append(row.tiers, res.Opportunities[o.ID].Confidence)
		row.Links.OpportunityIDs = append(row.Links.OpportunityIDs, o.ID)
	}

	out := make([]Rollup, 0, len(rows))
	for _, id := range idx.PostIDs() {
		row := rows[id]
		row.Confidence = domain.MaxConfidence(row.tiers...)
		row.Links = sortedLinks(row.Links)
		out = append(out, row.Rollup)
	}
	return out
}

func signalCreated(s domain.InboundSignal) time.Time { return s.CreatedAt }
func meetingCreated(m domain.Meeting) time.Time      { return m.CreatedAt }

// inWindow returns the records of in created within w.
func inWindow[T any](w Window, in []T, created func(T) time.Time) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if w.Contains(created(v)) {
			out = append(out, v)
		}
	}
	return out
}

// sortedLinks returns l with every id list sorted and non-nil, so the JSON
// form is stable.
func sortedLinks(l domain.SupportingLinks) domain.SupportingLinks {
	norm := func(ids []string) []string {
		if ids == nil {
			return []string{}
		}
		sort.Strings(ids)
		return ids
	}
	return domain.SupportingLinks{
		InboundSignalIDs: norm(l.InboundSignalIDs),
		OpportunityIDs:   norm(l.OpportunityIDs),
		MeetingIDs:       norm(l.MeetingIDs),
	}
}
