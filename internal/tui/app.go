// Package tui is the terminal front end of the portal.
package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"anoa.com/isfportal/internal/access"
	"anoa.com/isfportal/internal/entity"
	"anoa.com/isfportal/internal/prefs"
	"anoa.com/isfportal/internal/relay"
	"anoa.com/isfportal/internal/session"
	"anoa.com/isfportal/internal/views"
	"anoa.com/isfportal/pkg/logger"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Auth is what the login, register and logout actions need.
type Auth interface {
	views.Authenticator
	Logout(ctx context.Context) error
}

type Deps struct {
	Store    *session.Store
	Auth     Auth
	Reader   views.Reader
	Feed     views.ChangeFeed
	Writer   views.Writer
	Uploader views.Uploader
	Relay    *relay.Relay
	Prefs    *prefs.Store
}

type adminTab int

const (
	tabEvents adminTab = iota
	tabAnnouncements
	tabMembers
)

func (t adminTab) String() string {
	switch t {
	case tabEvents:
		return "Manage Events"
	case tabAnnouncements:
		return "Announcements"
	default:
		return "Members"
	}
}

type (
	sessionMsg     struct{ session session.Session }
	sessionSyncMsg struct{}
	viewChangedMsg struct{}
	chatChangedMsg struct{}
	toastDoneMsg   struct{ id int }

	formResultMsg struct {
		route   Route
		tab     adminTab
		message string
		toast   views.Toast
		err     error
	}
)

type Model struct {
	ctx    context.Context
	deps   Deps
	dark   bool
	styles styles
	width  int
	height int

	route          Route
	decision       access.Decision
	session        session.Session
	sessionVersion uint64

	home    *views.Home
	events  *views.View[entity.Event]
	team    *views.View[entity.TeamMember]
	forum   *views.Forum
	members *views.View[entity.Profile]
	console *views.Console
	login   *views.LoginPage
	signup  *views.RegisterPage

	cursor   int
	detail   *entity.Event
	modal    []string
	adminTab adminTab

	loginForm        *form
	registerForm     *form
	eventForm        *form
	announcementForm *form
	typing           bool
	busy             bool
	formError        string
	formInfo         string

	toast   string
	toastID int
	alert   string

	chatOpen  bool
	chatInput textinput.Model
	spinner   spinner.Model
}

func New(ctx context.Context, deps Deps) *Model {
	m := &Model{
		ctx:     ctx,
		deps:    deps,
		route:   RouteHome,
		session: deps.Store.Session(),

		sessionVersion: deps.Store.Version(),

		home:    views.NewHome(deps.Reader),
		events:  views.NewEventsView(deps.Reader, views.EventsPolicy),
		team:    views.NewTeamView(deps.Reader, views.TeamPolicy),
		forum:   views.NewForum(deps.Reader, deps.Feed),
		members: views.NewMembersView(deps.Reader),
		console: views.NewConsole(deps.Writer, deps.Uploader, deps.Store),
		login:   views.NewLoginPage(deps.Auth),
		signup:  views.NewRegisterPage(deps.Auth),

		loginForm: newForm("Login to your account", "Sign in",
			fieldSpec{label: "Email", placeholder: "you@university.edu"},
			fieldSpec{label: "Password", placeholder: "Password", secret: true},
		),
		registerForm: newForm("Create a new account", "Register",
			fieldSpec{label: "Full Name", placeholder: "Your Full Name"},
			fieldSpec{label: "Student ID", placeholder: "e.g., BK2023C07"},
			fieldSpec{label: "Email", placeholder: "you@university.edu"},
			fieldSpec{label: "Password", placeholder: "Password", secret: true},
		),
		eventForm: newForm("Add Event", "Add Event",
			fieldSpec{label: "Event Title", placeholder: "e.g., Innovate-a-Thon 2025"},
			fieldSpec{label: "Event Date", placeholder: "YYYY-MM-DD"},
			fieldSpec{label: "Description", placeholder: "Details about the event..."},
			fieldSpec{label: "Event Image", placeholder: "optional path to an image file"},
		),
		announcementForm: newForm("Post Announcement", "Post Announcement",
			fieldSpec{label: "Announcement Title", placeholder: "e.g., Call for Volunteers"},
			fieldSpec{label: "Content", placeholder: "Write your announcement here..."},
		),
	}

	if deps.Prefs != nil {
		p, err := deps.Prefs.Load()
		if err != nil {
			logger.Warn().Err(err).Msg("failed to read preferences")
		}
		m.dark = p.IsDarkMode
	}
	m.styles = newStyles(m.dark)

	m.chatInput = textinput.New()
	m.chatInput.Placeholder = "Ask about ISF..."
	m.chatInput.CharLimit = 1000
	m.chatInput.Width = 40

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot
	return m
}

// Bind routes store, view and relay notifications into the program.
func (m *Model) Bind(send func(tea.Msg)) (unbind func()) {
	unwatch := m.deps.Store.Watch(func(s session.Session) { send(sessionMsg{session: s}) })
	// The store may have resolved between New and Watch.
	go send(sessionSyncMsg{})

	changed := func() { send(viewChangedMsg{}) }
	m.home.Events.OnChange(changed)
	m.home.Team.OnChange(changed)
	m.home.Announcements.OnChange(changed)
	m.events.OnChange(changed)
	m.team.OnChange(changed)
	m.forum.Threads.OnChange(changed)
	m.members.OnChange(changed)

	if m.deps.Relay != nil {
		m.deps.Relay.OnChange(func(relay.State) { send(chatChangedMsg{}) })
	}
	return unwatch
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.enter(RouteHome))
}

// Teardown releases everything the current route holds.
func (m *Model) Teardown() {
	m.leave(m.route)
}

// load runs a view read off the update loop. The view must already be
// activated here, so a read that starts after leave finds it unmounted.
func (m *Model) load(refresh func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		// Results arrive through OnChange; failures are logged by the view.
		_ = refresh(ctx)
		return nil
	}
}

func (m *Model) enter(target Route) tea.Cmd {
	route, decision := Resolve(target, m.session)
	m.route = route
	m.decision = decision
	m.cursor = 0
	m.detail = nil
	m.modal = nil
	m.formError = ""
	m.formInfo = ""
	m.typing = false

	switch route {
	case RouteHome:
		m.home.Activate()
		ctx := m.ctx
		return func() tea.Msg {
			m.home.Refresh(ctx)
			return nil
		}
	case RouteEvents:
		m.events.Activate()
		return m.load(m.events.Refresh)
	case RouteTeam:
		m.team.Activate()
		return m.load(m.team.Refresh)
	case RouteCommunity:
		m.forum.Activate(m.ctx)
		forum := m.forum
		return func() tea.Msg {
			_ = forum.Connect()
			return nil
		}
	case RouteLogin:
		return m.startTyping(m.loginForm)
	case RouteRegister:
		return m.startTyping(m.registerForm)
	case RouteAdmin:
		if decision != access.Allow {
			return nil
		}
		return m.enterAdminTab(m.adminTab)
	}
	return nil
}

func (m *Model) leave(route Route) {
	switch route {
	case RouteHome:
		m.home.Unmount()
	case RouteEvents:
		m.events.Unmount()
	case RouteTeam:
		m.team.Unmount()
	case RouteCommunity:
		m.forum.Unmount()
	case RouteAdmin:
		m.members.Unmount()
	}
	if f := m.activeForm(); f != nil {
		f.Blur()
	}
}

func (m *Model) navigate(target Route) tea.Cmd {
	m.leave(m.route)
	return m.enter(target)
}

func (m *Model) enterAdminTab(tab adminTab) tea.Cmd {
	if m.adminTab == tabMembers && tab != tabMembers {
		m.members.Unmount()
	}
	m.adminTab = tab
	m.formError = ""
	switch tab {
	case tabEvents:
		return m.startTyping(m.eventForm)
	case tabAnnouncements:
		return m.startTyping(m.announcementForm)
	default:
		m.typing = false
		m.members.Activate()
		return m.load(m.members.Refresh)
	}
}

func (m *Model) startTyping(f *form) tea.Cmd {
	m.typing = true
	return f.Focus()
}

// activeForm is the form shown on the current route, if any.
func (m *Model) activeForm() *form {
	switch m.route {
	case RouteLogin:
		return m.loginForm
	case RouteRegister:
		return m.registerForm
	case RouteAdmin:
		if m.decision != access.Allow {
			return nil
		}
		switch m.adminTab {
		case tabEvents:
			return m.eventForm
		case tabAnnouncements:
			return m.announcementForm
		}
	}
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionMsg:
		return m, m.onSession(msg.session)

	case sessionSyncMsg:
		if m.deps.Store.Version() == m.sessionVersion {
			return m, nil
		}
		return m, m.onSession(m.deps.Store.Session())

	case viewChangedMsg, chatChangedMsg:
		return m, nil

	case toastDoneMsg:
		if msg.id == m.toastID {
			m.toast = ""
		}
		return m, nil

	case formResultMsg:
		return m, m.onFormResult(msg)

	case tea.KeyMsg:
		return m, m.onKey(msg)
	}

	if f := m.activeForm(); f != nil && m.typing {
		return m, f.Update(msg)
	}
	return m, nil
}

// onSession re-runs the guard so an open admin screen reacts to sign-in,
// sign-out and role changes.
func (m *Model) onSession(s session.Session) tea.Cmd {
	m.session = s

	if m.route == RouteLogin && s.Identity != nil {
		return m.navigate(RouteHome)
	}
	if m.route != RouteAdmin {
		return nil
	}

	route, decision := Resolve(RouteAdmin, s)
	switch {
	case route != RouteAdmin:
		return m.navigate(route)
	case decision != m.decision:
		return m.enter(RouteAdmin)
	}
	return nil
}

func (m *Model) onFormResult(msg formResultMsg) tea.Cmd {
	m.busy = false

	var writeErr *views.WriteError
	if errors.As(msg.err, &writeErr) {
		m.alert = writeErr.Error()
		return nil
	}
	if msg.err != nil {
		m.formError = msg.err.Error()
		return nil
	}

	switch msg.route {
	case RouteLogin:
		m.loginForm.Reset()
		return m.navigate(RouteHome)
	case RouteRegister:
		m.registerForm.Reset()
		m.formInfo = msg.message
		return nil
	case RouteAdmin:
		if msg.tab == tabEvents {
			m.eventForm.Reset()
		} else {
			m.announcementForm.Reset()
		}
		return m.showToast(msg.toast)
	}
	return nil
}

func (m *Model) showToast(t views.Toast) tea.Cmd {
	m.toastID++
	id := m.toastID
	m.toast = t.Message
	return tea.Tick(t.Duration, func(time.Time) tea.Msg { return toastDoneMsg{id: id} })
}

func (m *Model) setDark(dark bool) {
	m.dark = dark
	m.styles = newStyles(dark)
	if m.deps.Prefs == nil {
		return
	}
	if err := m.deps.Prefs.Save(prefs.Prefs{IsDarkMode: dark}); err != nil {
		logger.Warn().Err(err).Msg("failed to save preferences")
	}
}

func (m *Model) onKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" {
		return tea.Quit
	}

	// A write error blocks until acknowledged.
	if m.alert != "" {
		if key == "enter" || key == "esc" {
			m.alert = ""
		}
		return nil
	}

	if m.chatOpen {
		return m.onChatKey(msg)
	}

	if m.typing {
		return m.onFormKey(msg)
	}

	if m.detail != nil || m.modal != nil {
		if key == "esc" || key == "enter" {
			m.detail = nil
			m.modal = nil
		}
		return nil
	}

	switch key {
	case "q":
		return tea.Quit
	case "1", "2", "3", "4", "5", "6", "7":
		return m.navigate(Routes[int(key[0]-'1')])
	case "d":
		m.setDark(!m.dark)
		return nil
	case "o":
		m.chatOpen = true
		if m.deps.Relay != nil {
			m.deps.Relay.Open()
		}
		return m.chatInput.Focus()
	case "x":
		if m.session.Identity == nil {
			return nil
		}
		auth, ctx := m.deps.Auth, m.ctx
		return func() tea.Msg {
			if err := auth.Logout(ctx); err != nil {
				logger.Error().Err(err).Msg("logout failed")
			}
			return nil
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return nil
	case "down", "j":
		m.cursor++
		return nil
	case "tab":
		if m.route == RouteAdmin && m.decision == access.Allow {
			return m.enterAdminTab((m.adminTab + 1) % 3)
		}
	case "i":
		if f := m.activeForm(); f != nil {
			return m.startTyping(f)
		}
	case "n":
		if m.route == RouteCommunity && m.session.Identity != nil {
			return m.showToast(views.Toast{Message: "Posting threads is not available yet.", Duration: views.ToastDuration})
		}
	case "m":
		if m.route == RouteTeam {
			m.openMessageModal()
		}
	case "enter":
		if m.route == RouteEvents {
			items := m.events.Snapshot().Items
			if m.cursor < len(items) {
				e := items[m.cursor]
				m.detail = &e
			}
		}
	}
	return nil
}

func (m *Model) openMessageModal() {
	items := m.team.Snapshot().Items
	if m.cursor >= len(items) {
		return
	}
	if m.session.Identity == nil {
		m.modal = []string{"Access Denied", "Please log in to message team members.", "Press 5 to log in."}
		return
	}
	m.modal = []string{"Send a Message", "to " + items[m.cursor].Name, "Direct messaging is not available yet."}
}

func (m *Model) onFormKey(msg tea.KeyMsg) tea.Cmd {
	f := m.activeForm()
	if f == nil {
		m.typing = false
		return nil
	}

	switch msg.String() {
	case "esc":
		m.typing = false
		f.Blur()
		return nil
	case "tab", "down":
		return f.Next()
	case "shift+tab", "up":
		return f.Prev()
	case "enter":
		if !f.OnLast() {
			return f.Next()
		}
		if m.busy {
			return nil
		}
		return m.submit(f)
	}
	return f.Update(msg)
}

func (m *Model) submit(f *form) tea.Cmd {
	m.busy = true
	m.formError = ""
	m.formInfo = ""
	ctx := m.ctx

	switch f {
	case m.loginForm:
		in := views.LoginForm{Email: f.Value(0), Password: f.Raw(1)}
		return func() tea.Msg {
			return formResultMsg{route: RouteLogin, err: m.login.Submit(ctx, in)}
		}

	case m.registerForm:
		in := views.RegisterForm{Name: f.Value(0), StudentID: f.Value(1), Email: f.Value(2), Password: f.Raw(3)}
		return func() tea.Msg {
			message, err := m.signup.Submit(ctx, in)
			return formResultMsg{route: RouteRegister, message: message, err: err}
		}

	case m.eventForm:
		in := views.EventForm{Title: f.Value(0), Date: f.Value(1), Description: f.Value(2)}
		imagePath := f.Value(3)
		return func() tea.Msg {
			if imagePath != "" {
				file, err := os.Open(imagePath)
				if err != nil {
					return formResultMsg{route: RouteAdmin, tab: tabEvents, err: err}
				}
				defer file.Close()
				in.Image = file
				in.ImageName = filepath.Base(imagePath)
			}
			toast, err := m.console.AddEvent(ctx, in)
			return formResultMsg{route: RouteAdmin, tab: tabEvents, toast: toast, err: err}
		}

	case m.announcementForm:
		in := views.AnnouncementForm{Title: f.Value(0), Content: f.Value(1)}
		return func() tea.Msg {
			toast, err := m.console.PostAnnouncement(ctx, in)
			return formResultMsg{route: RouteAdmin, tab: tabAnnouncements, toast: toast, err: err}
		}
	}

	m.busy = false
	return nil
}

func (m *Model) onChatKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.chatOpen = false
		m.chatInput.Blur()
		return nil
	case "enter":
		if m.deps.Relay == nil || m.deps.Relay.State() != relay.Idle {
			return nil
		}
		text := m.chatInput.Value()
		m.chatInput.SetValue("")
		r, ctx := m.deps.Relay, m.ctx
		return func() tea.Msg {
			// The transcript shows the apology on failure.
			_ = r.Submit(ctx, text)
			return chatChangedMsg{}
		}
	}

	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return cmd
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, deps Deps) error {
	m := New(ctx, deps)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	unbind := m.Bind(p.Send)
	defer unbind()
	defer m.Teardown()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
