package attribution

import (
	"time"

	"github.com/yuvraj-bhatia/virio-pulse/internal/domain"
)

const clientA = "client-a"

var now = time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC)

func strp(s string) *string        { return &s }
func timep(t time.Time) *time.Time { return &t }

func daysAgo(d int) time.Time { return now.AddDate(0, 0, -d) }

func post(id, actor, url string, postedAt *time.Time) domain.ContentPost {
	p := domain.ContentPost{ID: id, ClientID: clientA, ActorID: actor, PostedAt: postedAt, Status: domain.PostStatusPosted}
	if url != "" {
		p.PostURL = strp(url)
	}
	return p
}

func signal(id string, at time.Time) domain.InboundSignal {
	return domain.InboundSignal{ID: id, ClientID: clientA, CreatedAt: at, Source: "linkedin_dm"}
}

var softOn = Options{WindowDays: 7, UseSoftAttribution: true}
