package attribution

import (
	"sort"
	"strings"

	"github.com/yuvraj-bhatia/virio-pulse/internal/domain"
)

// postURL pairs a post with the URL used for substring matching: the
// normalized key when the raw URL normalizes, the trimmed raw URL otherwise.
type postURL struct {
	postID string
	url    string
}

// PostIndex is a read-only lookup over one client's content posts, with
// normalized URL keys and per-actor timelines precomputed.
type PostIndex struct {
	clientID string
	ordered  []domain.ContentPost // by id ascending
	byID     map[string]domain.ContentPost
	byURL    map[string]string
	urls     []postURL
	byActor  map[string][]domain.ContentPost // posted_at desc, id desc
}

// NewPostIndex builds the index for clientID. Posts belonging to other
// clients are ignored. When two posts share a normalized URL the one with the
// smaller id owns the key.
func NewPostIndex(clientID string, posts []domain.ContentPost) *PostIndex {
	idx := &PostIndex{
		clientID: clientID,
		byID:     make(map[string]domain.ContentPost, len(posts)),
		byURL:    make(map[string]string, len(posts)),
		byActor:  make(map[string][]domain.ContentPost),
	}
	for _, p := range posts {
		if p.ClientID != clientID {
			continue
		}
		if _, dup := idx.byID[p.ID]; dup {
			continue
		}
		idx.byID[p.ID] = p
		idx.ordered = append(idx.ordered, p)
	}
	sort.Slice(idx.ordered, func(i, j int) bool { return idx.ordered[i].ID < idx.ordered[j].ID })

	for _, p := range idx.ordered {
		if p.PostURL != nil {
			if raw := strings.TrimSpace(*p.PostURL); raw != "" {
				if key, ok := NormalizeURL(raw); ok {
					if _, taken := idx.byURL[key]; !taken {
						idx.byURL[key] = p.ID
					}
					idx.urls = append(idx.urls, postURL{postID: p.ID, url: key})
				} else {
					idx.urls = append(idx.urls, postURL{postID: p.ID, url: raw})
				}
			}
		}
		if p.PostedAt != nil && p.ActorID != "" {
			idx.byActor[p.ActorID] = append(idx.byActor[p.ActorID], p)
		}
	}

	for _, timeline := range idx.byActor {
		sort.Slice(timeline, func(i, j int) bool {
			a, b := timeline[i], timeline[j]
			if !a.PostedAt.Equal(*b.PostedAt) {
				return a.PostedAt.After(*b.PostedAt)
			}
			return a.ID > b.ID
		})
	}
	return idx
}

// ClientID returns the client the index was built for.
func (idx *PostIndex) ClientID() string { return idx.clientID }

// Len returns the number of indexed posts.
func (idx *PostIndex) Len() int { return len(idx.ordered) }

// Has reports whether postID is one of the client's posts.
func (idx *PostIndex) Has(postID string) bool {
	_, ok := idx.byID[postID]
	return ok
}

// PostIDs returns every indexed post id in ascending order.
func (idx *PostIndex) PostIDs() []string {
	out := make([]string, len(idx.ordered))
	for i, p := range idx.ordered {
		out[i] = p.ID
	}
	return out
}

// byNormalizedURL returns the post owning a normalized URL key.
func (idx *PostIndex) byNormalizedURL(key string) (string, bool) {
	id, ok := idx.byURL[key]
	return id, ok
}

// bySubstring returns the first post (by id) whose URL and raw are substrings
// of one another. Tolerates truncated or decorated entry-point URLs.
func (idx *PostIndex) bySubstring(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	for _, pu := range idx.urls {
		if strings.Contains(raw, pu.url) || strings.Contains(pu.url, raw) {
			return pu.postID, true
		}
	}
	return "", false
}

// timeline returns the actor's dated posts, newest first.
func (idx *PostIndex) timeline(actorID string) []domain.ContentPost {
	return idx.byActor[actorID]
}
