package views

import (
	"context"

	"anoa.com/isfportal/internal/entity"
	"anoa.com/isfportal/pkg/platform"
)

// Policy is the read a view issues: which table, in which order, how many.
type Policy struct {
	Table     string
	OrderBy   string
	Ascending bool
	Limit     int
}

func (p Policy) WithLimit(n int) Policy {
	p.Limit = n
	return p
}

var (
	EventsPolicy        = Policy{Table: "events", OrderBy: "date"}
	AnnouncementsPolicy = Policy{Table: "announcements", OrderBy: "created_at"}
	ThreadsPolicy       = Policy{Table: "threads", OrderBy: "last_post"}
	TeamPolicy          = Policy{Table: "team_members", OrderBy: "id", Ascending: true}
	MembersPolicy       = Policy{Table: "profiles"}

	HomeEventsPolicy        = EventsPolicy.WithLimit(3)
	HomeTeamPolicy          = TeamPolicy.WithLimit(4)
	HomeAnnouncementsPolicy = AnnouncementsPolicy.WithLimit(2)
)

// Reader runs a policy and decodes the rows into dest.
type Reader interface {
	Read(ctx context.Context, p Policy, dest interface{}) error
}

type platformReader struct {
	client *platform.Client
}

func NewPlatformReader(client *platform.Client) Reader {
	return &platformReader{client: client}
}

func (r *platformReader) Read(ctx context.Context, p Policy, dest interface{}) error {
	q := r.client.From(p.Table).Select("*")
	if p.OrderBy != "" {
		q = q.Order(p.OrderBy, p.Ascending)
	}
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	return q.Execute(ctx, dest)
}

// List builds a loader that reads p into a []T.
func List[T any](r Reader, p Policy) Loader[T] {
	return func(ctx context.Context) ([]T, error) {
		var rows []T
		if err := r.Read(ctx, p, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
}

func NewEventsView(r Reader, p Policy) *View[entity.Event] {
	return NewView("events", "No events yet.", List[entity.Event](r, p))
}

func NewAnnouncementsView(r Reader, p Policy) *View[entity.Announcement] {
	return NewView("announcements", "No announcements yet.", List[entity.Announcement](r, p))
}

func NewTeamView(r Reader, p Policy) *View[entity.TeamMember] {
	return NewView("team_members", "No team members yet.", List[entity.TeamMember](r, p))
}

func NewThreadsView(r Reader) *View[entity.Thread] {
	return NewView("threads", "No threads yet. Start the conversation!", List[entity.Thread](r, ThreadsPolicy))
}

func NewMembersView(r Reader) *View[entity.Profile] {
	return NewView("members", "No registered members.", List[entity.Profile](r, MembersPolicy))
}

// Home groups the three landing-page sections.
type Home struct {
	Events        *View[entity.Event]
	Team          *View[entity.TeamMember]
	Announcements *View[entity.Announcement]
}

func NewHome(r Reader) *Home {
	return &Home{
		Events:        NewEventsView(r, HomeEventsPolicy),
		Team:          NewTeamView(r, HomeTeamPolicy),
		Announcements: NewAnnouncementsView(r, HomeAnnouncementsPolicy),
	}
}

func (h *Home) Activate() {
	h.Events.Activate()
	h.Team.Activate()
	h.Announcements.Activate()
}

func (h *Home) Mount(ctx context.Context) {
	h.Activate()
	h.Refresh(ctx)
}

// Refresh loads the sections concurrently. Failures are already logged by
// each view.
func (h *Home) Refresh(ctx context.Context) {
	done := make(chan struct{}, 3)
	go func() { _ = h.Events.Refresh(ctx); done <- struct{}{} }()
	go func() { _ = h.Team.Refresh(ctx); done <- struct{}{} }()
	go func() { _ = h.Announcements.Refresh(ctx); done <- struct{}{} }()
	for i := 0; i < 3; i++ {
		<-done
	}
}

func (h *Home) Unmount() {
	h.Events.Unmount()
	h.Team.Unmount()
	h.Announcements.Unmount()
}
