// Package access decides whether a session may see a role-gated surface.
package access

// Decision is the outcome of a guard check.
type Decision int

const (
	// Pending means the session is still being resolved; render nothing
	// protected and do not redirect.
	Pending Decision = iota
	Deny
	Allow
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case Deny:
		return "deny"
	case Allow:
		return "allow"
	default:
		return "unknown"
	}
}

// RoleAnyMember accepts any present identity regardless of its role.
const RoleAnyMember = "*"

// Subject is the view of a session the guard needs.
type Subject interface {
	Resolving() bool
	// IdentityRole reports the role of the signed-in identity, if any.
	IdentityRole() (string, bool)
}

// Decide is pure: the same subject state and role always yield the same
// decision.
func Decide(s Subject, required string) Decision {
	if s == nil {
		return Deny
	}
	if s.Resolving() {
		return Pending
	}

	role, ok := s.IdentityRole()
	if !ok {
		return Deny
	}
	if required == RoleAnyMember || role == required {
		return Allow
	}
	return Deny
}

type known struct {
	role    string
	present bool
}

func (k known) Resolving() bool { return false }

func (k known) IdentityRole() (string, bool) { return k.role, k.present }

// Known builds a resolved subject for a caller whose role is already
// established, e.g. from a verified token.
func Known(role string) Subject {
	return known{role: role, present: true}
}

// Anonymous is a resolved subject with no identity.
func Anonymous() Subject {
	return known{}
}
