package attribution

import (
	"github.com/yuvraj-bhatia/virio-pulse/internal/domain"
)

// ResolveMeetings gives each meeting the resolution of the signal it
// references, verbatim. Meetings without a reference, or whose signal is not
// in signals, are Unattributed.
func ResolveMeetings(meetings []domain.Meeting, signals map[string]Resolution) map[string]Resolution {
	out := make(map[string]Resolution, len(meetings))
	for _, m := range meetings {
		out[m.ID] = Unattributed
		if m.InboundSignalID == nil {
			continue
		}
		if r, ok := signals[*m.InboundSignalID]; ok {
			out[m.ID] = r
		}
	}
	return out
}

// ResolveOpportunity credits an opportunity, first match wins:
//
//  1. its signal resolves to a post: inherit post and confidence
//  2. its direct post reference is one of the client's posts: HIGH
//  3. its meeting resolves to a post: inherit post and confidence
//
// signals and meetings hold resolutions of in-window records only.
func ResolveOpportunity(o domain.Opportunity, idx *PostIndex, signals, meetings map[string]Resolution) Resolution {
	if idx == nil || o.ClientID != idx.clientID {
		return Unattributed
	}
	if o.InboundSignalID != nil {
		if r, ok := signals[*o.InboundSignalID]; ok && r.Attributed() {
			return r
		}
	}
	if o.PostID != nil && idx.Has(*o.PostID) {
		return Resolution{PostID: *o.PostID, Confidence: domain.ConfidenceHigh}
	}
	if o.MeetingID != nil {
		if r, ok := meetings[*o.MeetingID]; ok && r.Attributed() {
			return r
		}
	}
	return Unattributed
}

// ResolveOpportunities resolves every opportunity, keyed by opportunity id.
func ResolveOpportunities(opps []domain.Opportunity, idx *PostIndex, signals, meetings map[string]Resolution) map[string]Resolution {
	out := make(map[string]Resolution, len(opps))
	for _, o := range opps {
		out[o.ID] = ResolveOpportunity(o, idx, signals, meetings)
	}
	return out
}
