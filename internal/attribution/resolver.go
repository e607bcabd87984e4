package attribution

import (
	"strings"
	"time"

	"github.com/yuvraj-bhatia/virio-pulse/internal/domain"
)

// Options are the per-client resolution knobs. They are passed explicitly so
// resolution stays a pure function of its inputs.
type Options struct {
	// WindowDays is the maximum age of a post, relative to the signal, for a
	// soft match. Values <= 0 disable soft matching.
	WindowDays int
	// UseSoftAttribution enables the same-actor time-window fallback.
	UseSoftAttribution bool
}

// OptionsFromSettings maps stored client settings to resolver options.
func OptionsFromSettings(s domain.AttributionSettings) Options {
	return Options{
		WindowDays:         s.AttributionWindowDays,
		UseSoftAttribution: s.UseSoftAttribution,
	}
}

// Resolution is the attributed post (empty when none) and its confidence.
// An empty PostID always pairs with UNATTRIBUTED.
type Resolution struct {
	PostID     string
	Confidence domain.Confidence
}

// Attributed reports whether the resolution points at a post.
func (r Resolution) Attributed() bool { return r.PostID != "" }

// Unattributed is the resolution for records no rule could match.
var Unattributed = Resolution{Confidence: domain.ConfidenceUnattributed}

// ResolveSignal decides which post, if any, sig is credited to. Rules are
// tried in order and the first match wins:
//
//  1. direct post reference owned by the client: HIGH
//  2. normalized entry-point URL equals a post URL: MEDIUM
//  3. entry-point URL and a post URL contain one another: MEDIUM
//  4. same actor posted within the attribution window (soft): MEDIUM
//
// Anything else is Unattributed. A signal from another client never matches.
func ResolveSignal(sig domain.InboundSignal, idx *PostIndex, opts Options) Resolution {
	if idx == nil || sig.ClientID != idx.clientID {
		return Unattributed
	}

	if sig.PostID != nil && idx.Has(*sig.PostID) {
		return Resolution{PostID: *sig.PostID, Confidence: domain.ConfidenceHigh}
	}

	if sig.EntryPointURL != nil {
		if raw := strings.TrimSpace(*sig.EntryPointURL); raw != "" {
			if key, ok := NormalizeURL(raw); ok {
				if id, ok := idx.byNormalizedURL(key); ok {
					return Resolution{PostID: id, Confidence: domain.ConfidenceMedium}
				}
			}
			if id, ok := idx.bySubstring(raw); ok {
				return Resolution{PostID: id, Confidence: domain.ConfidenceMedium}
			}
		}
	}

	if opts.UseSoftAttribution && sig.ActorID != nil {
		if id, ok := softMatch(idx.timeline(*sig.ActorID), sig.CreatedAt, opts.WindowDays); ok {
			return Resolution{PostID: id, Confidence: domain.ConfidenceMedium}
		}
	}

	return Unattributed
}

// ResolveSignals resolves every signal, keyed by signal id.
func ResolveSignals(signals []domain.InboundSignal, idx *PostIndex, opts Options) map[string]Resolution {
	out := make(map[string]Resolution, len(signals))
	for _, s := range signals {
		out[s.ID] = ResolveSignal(s, idx, opts)
	}
	return out
}

// softMatch picks the newest post in timeline (posted_at desc, id desc)
// published at or before at and no more than windowDays earlier.
func softMatch(timeline []domain.ContentPost, at time.Time, windowDays int) (string, bool) {
	if windowDays <= 0 {
		return "", false
	}
	window := time.Duration(windowDays) * 24 * time.Hour
	for _, p := range timeline {
		age := at.Sub(*p.PostedAt)
		if age < 0 {
			continue
		}
		if age <= window {
			return p.ID, true
		}
		// Older posts only get further away.
		return "", false
	}
	return "", false
}
