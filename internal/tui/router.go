package tui

import (
	"anoa.com/isfportal/internal/access"
	"anoa.com/isfportal/internal/entity"
)

type Route string

const (
	RouteHome      Route = "/"
	RouteEvents    Route = "/events"
	RouteTeam      Route = "/team"
	RouteCommunity Route = "/community"
	RouteLogin     Route = "/login"
	RouteRegister  Route = "/register"
	RouteAdmin     Route = "/admin"
)

// Routes in navigation order; the number keys 1-7 follow it.
var Routes = []Route{RouteHome, RouteEvents, RouteTeam, RouteCommunity, RouteLogin, RouteRegister, RouteAdmin}

func (r Route) Title() string {
	switch r {
	case RouteHome:
		return "Home"
	case RouteEvents:
		return "Events"
	case RouteTeam:
		return "Team"
	case RouteCommunity:
		return "Community"
	case RouteLogin:
		return "Login"
	case RouteRegister:
		return "Register"
	case RouteAdmin:
		return "Admin"
	default:
		return string(r)
	}
}

// Resolve applies the guard to a navigation target. Pending keeps the
// target so a neutral screen is shown; Deny sends the user home.
func Resolve(target Route, s access.Subject) (Route, access.Decision) {
	if target != RouteAdmin {
		return target, access.Allow
	}

	switch d := access.Decide(s, entity.RoleAdmin); d {
	case access.Deny:
		return RouteHome, d
	default:
		return target, d
	}
}
