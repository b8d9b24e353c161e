package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSubject struct {
	loading bool
	role    string
	present bool
}

func (f fakeSubject) Resolving() bool { return f.loading }

func (f fakeSubject) IdentityRole() (string, bool) { return f.role, f.present }

func TestDecide(t *testing.T) {
	tcases := []struct {
		name     string
		subject  Subject
		required string
		want     Decision
	}{
		{"loading without identity", fakeSubject{loading: true}, "admin", Pending},
		{"loading with admin identity", fakeSubject{loading: true, role: "admin", present: true}, "admin", Pending},
		{"absent identity", fakeSubject{}, "admin", Deny},
		{"member on admin route", fakeSubject{role: "member", present: true}, "admin", Deny},
		{"executive on admin route", fakeSubject{role: "executive", present: true}, "admin", Deny},
		{"admin on admin route", fakeSubject{role: "admin", present: true}, "admin", Allow},
		{"member on any member route", fakeSubject{role: "member", present: true}, RoleAnyMember, Allow},
		{"anonymous on any member route", Anonymous(), RoleAnyMember, Deny},
		{"known admin", Known("admin"), "admin", Allow},
		{"nil subject", nil, "admin", Deny},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.subject, tc.required))
		})
	}
}

func TestDecideIsStable(t *testing.T) {
	s := fakeSubject{role: "admin", present: true}
	first := Decide(s, "admin")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Decide(s, "admin"))
	}
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "deny", Deny.String())
	assert.Equal(t, "allow", Allow.String())
}
