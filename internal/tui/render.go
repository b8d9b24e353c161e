package tui

import (
	"fmt"
	"strings"
	"time"

	"anoa.com/isfportal/internal/access"
	"anoa.com/isfportal/internal/entity"
	"anoa.com/isfportal/internal/relay"
	"anoa.com/isfportal/internal/views"
	"github.com/charmbracelet/lipgloss"
)

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderNav())
	b.WriteString("\n\n")

	switch {
	case m.alert != "":
		b.WriteString(m.styles.alert.Render(m.alert + "\n\n" + m.styles.muted.Render("enter to dismiss")))
	case m.detail != nil:
		b.WriteString(m.renderEventDetail(*m.detail))
	case m.modal != nil:
		b.WriteString(m.renderModal())
	default:
		b.WriteString(m.renderRoute())
	}

	if m.toast != "" {
		b.WriteString("\n\n" + m.styles.toast.Render(m.toast))
	}

	page := b.String()
	if m.chatOpen {
		page = lipgloss.JoinHorizontal(lipgloss.Top, page, "  ", m.renderChat())
	}
	return page + "\n" + m.renderHelp()
}

func (m *Model) renderNav() string {
	items := []string{m.styles.title.Render("ISF")}
	for i, r := range Routes {
		label := fmt.Sprintf("%d %s", i+1, r.Title())
		if r == m.route {
			items = append(items, m.styles.navActive.Render(label))
		} else {
			items = append(items, m.styles.navItem.Render(label))
		}
	}

	who := "guest"
	switch {
	case m.session.Loading:
		who = "…"
	case m.session.Identity != nil:
		who = m.session.Identity.Name + " (" + m.session.Identity.Role + ")"
	}
	items = append(items, m.styles.muted.Render("  "+who))
	return lipgloss.JoinHorizontal(lipgloss.Center, items...)
}

func (m *Model) renderHelp() string {
	var keys string
	switch {
	case m.chatOpen:
		keys = "enter send • esc close chat"
	case m.typing:
		keys = "tab next field • enter submit • esc stop typing"
	default:
		keys = "1-7 pages • ↑/↓ select • d dark mode • o chat • x logout • q quit"
		switch m.route {
		case RouteEvents:
			keys += " • enter details"
		case RouteTeam:
			keys += " • m message"
		case RouteCommunity:
			keys += " • n new post"
		case RouteAdmin:
			keys += " • tab switch tab • i edit form"
		case RouteLogin, RouteRegister:
			keys += " • i edit form"
		}
	}
	return m.styles.help.Render(keys)
}

func (m *Model) renderRoute() string {
	switch m.route {
	case RouteHome:
		return m.renderHome()
	case RouteEvents:
		return m.styles.heading.Render("Event Gallery") + "\n" + renderList(m, m.events.Snapshot(), "Loading events...", m.eventLine)
	case RouteTeam:
		return m.styles.heading.Render("Executive Committee") + "\n" + renderList(m, m.team.Snapshot(), "Loading team...", m.memberLine)
	case RouteCommunity:
		return m.renderCommunity()
	case RouteLogin:
		return m.renderForm(m.loginForm)
	case RouteRegister:
		return m.renderForm(m.registerForm)
	case RouteAdmin:
		return m.renderAdmin()
	}
	return ""
}

func (m *Model) renderHome() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("Innovation & Science Forum"))
	b.WriteString("\n" + m.styles.muted.Render("Student club portal"))

	b.WriteString("\n" + m.styles.heading.Render("Upcoming Events") + "\n")
	b.WriteString(renderList(m, m.home.Events.Snapshot(), "Loading events...", m.eventLine))
	b.WriteString("\n" + m.styles.heading.Render("Meet the Team") + "\n")
	b.WriteString(renderList(m, m.home.Team.Snapshot(), "Loading team...", m.memberLine))
	b.WriteString("\n" + m.styles.heading.Render("Latest Announcements") + "\n")
	b.WriteString(renderList(m, m.home.Announcements.Snapshot(), "Loading announcements...", m.announcementLine))
	return b.String()
}

func (m *Model) renderCommunity() string {
	var b strings.Builder
	b.WriteString(m.styles.heading.Render("Community Forum") + "\n")
	b.WriteString(m.styles.label.Render(views.Welcome(m.session)) + "\n")

	if m.session.Identity == nil {
		b.WriteString(m.styles.muted.Render("Become an ISF member to post, reply, and access exclusive resources.\nPress 5 to log in or 6 to register."))
		return b.String()
	}
	b.WriteString(renderList(m, m.forum.Threads.Snapshot(), "Loading threads...", m.threadLine))
	return b.String()
}

func (m *Model) renderAdmin() string {
	switch m.decision {
	case access.Pending:
		return m.spinner.View() + " " + m.styles.muted.Render("Loading...")
	case access.Deny:
		return ""
	}

	var tabs []string
	for _, t := range []adminTab{tabEvents, tabAnnouncements, tabMembers} {
		if t == m.adminTab {
			tabs = append(tabs, m.styles.navActive.Render(t.String()))
		} else {
			tabs = append(tabs, m.styles.navItem.Render(t.String()))
		}
	}

	var b strings.Builder
	b.WriteString(m.styles.heading.Render("Admin Dashboard") + "\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n\n")

	switch m.adminTab {
	case tabEvents:
		b.WriteString(m.renderForm(m.eventForm))
	case tabAnnouncements:
		b.WriteString(m.renderForm(m.announcementForm))
	case tabMembers:
		snap := m.members.Snapshot()
		if snap.State == views.Loading {
			b.WriteString(m.styles.muted.Render("Loading members..."))
			break
		}
		b.WriteString(m.styles.label.Render(fmt.Sprintf("Registered Members (%d)", len(snap.Items))) + "\n")
		b.WriteString(renderList(m, snap, "Loading members...", m.profileLine))
	}
	return b.String()
}

func (m *Model) renderForm(f *form) string {
	var b strings.Builder
	b.WriteString(m.styles.label.Render(f.title) + "\n\n")
	for _, fld := range f.fields {
		b.WriteString(m.styles.label.Render(fld.label) + "\n")
		b.WriteString(fld.input.View() + "\n\n")
	}

	switch {
	case m.busy:
		b.WriteString(m.spinner.View() + " " + m.styles.muted.Render("Working..."))
	case m.formError != "":
		b.WriteString(m.styles.errorText.Render(m.formError))
	case m.formInfo != "":
		b.WriteString(m.styles.text.Render(m.formInfo))
	default:
		b.WriteString(m.styles.muted.Render("enter on the last field: " + f.submit))
	}
	return b.String()
}

func (m *Model) renderEventDetail(e entity.Event) string {
	body := m.styles.title.Render(formatDate(e.Date)) + "\n" +
		m.styles.label.Render(e.Title) + "\n\n" +
		m.styles.text.Render(e.Description) + "\n\n" +
		m.styles.muted.Render(e.ImageURL)
	return m.styles.selected.Width(72).Render(body)
}

func (m *Model) renderModal() string {
	lines := make([]string, len(m.modal))
	for i, l := range m.modal {
		if i == 0 {
			lines[i] = m.styles.label.Render(l)
		} else {
			lines[i] = m.styles.text.Render(l)
		}
	}
	return m.styles.selected.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderChat() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("ISF AI Assistant") + "\n\n")

	if m.deps.Relay != nil {
		transcript := m.deps.Relay.Transcript()
		// Keep the tail in view.
		if keep := 12; len(transcript) > keep {
			transcript = transcript[len(transcript)-keep:]
		}
		for _, msg := range transcript {
			text := msg.Text
			if msg.IsStreaming {
				text += " " + m.spinner.View()
			}
			style := m.styles.botMsg
			if msg.Sender == relay.SenderUser {
				style = m.styles.userMsg
			}
			b.WriteString(style.Width(40).Render(text) + "\n")
		}
		if m.deps.Relay.State() != relay.Idle {
			b.WriteString("\n" + m.styles.muted.Render("waiting for reply..."))
		} else {
			b.WriteString("\n" + m.chatInput.View())
		}
	}
	return m.styles.chat.Render(b.String())
}

// renderList draws a snapshot: loading text first, then rows or the empty
// state. Failed reads fall back to the empty state.
func renderList[T any](m *Model, snap views.Snapshot[T], loading string, line func(T) string) string {
	if snap.State == views.Loading && len(snap.Items) == 0 {
		return m.styles.muted.Render(loading)
	}
	if snap.Empty() {
		return m.styles.muted.Render(snap.EmptyMessage)
	}

	rows := make([]string, len(snap.Items))
	for i, item := range snap.Items {
		style := m.styles.card
		if i == m.cursor {
			style = m.styles.selected
		}
		rows[i] = style.Render(line(item))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Model) eventLine(e entity.Event) string {
	return m.styles.title.Render(formatDate(e.Date)) + "  " + m.styles.label.Render(e.Title) + "\n" + m.styles.muted.Render(truncate(e.Description, 70))
}

func (m *Model) memberLine(t entity.TeamMember) string {
	line := m.styles.label.Render(t.Name) + "  " + m.styles.title.Render(t.Position)
	var socials []string
	if t.Socials.LinkedIn != "" {
		socials = append(socials, "in: "+t.Socials.LinkedIn)
	}
	if t.Socials.Instagram != "" {
		socials = append(socials, "ig: "+t.Socials.Instagram)
	}
	if len(socials) > 0 {
		line += "\n" + m.styles.muted.Render(strings.Join(socials, "  "))
	}
	return line
}

func (m *Model) announcementLine(a entity.Announcement) string {
	return m.styles.label.Render(a.Title) + "  " + m.styles.muted.Render("by "+a.Author+" • "+formatDate(a.Date)) + "\n" + m.styles.text.Render(truncate(a.Content, 70))
}

func (m *Model) threadLine(t entity.Thread) string {
	return m.styles.label.Render(t.Title) + "\n" +
		m.styles.muted.Render(fmt.Sprintf("by %s • %d replies • %s", t.Author, t.Replies, t.LastPost.Local().Format("2 Jan 2006")))
}

func (m *Model) profileLine(p entity.Profile) string {
	return fmt.Sprintf("%-24s %-12s %-28s %s", p.Name, p.StudentID, p.Email, p.Role)
}

// formatDate shows calendar dates and timestamps the same way; anything
// else is printed as stored.
func formatDate(s string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2 Jan 2006")
		}
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
