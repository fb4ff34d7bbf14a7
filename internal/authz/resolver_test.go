package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetboard/fleetboard/internal/authz"
)

func set(ids ...uint64) map[uint64]struct{} {
	s := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func grant(category int32, role uint64, view, create, manage bool) authz.Grant {
	return authz.Grant{
		CategoryID: category,
		RoleID:     role,
		Capability: authz.Capability{View: view, Create: create, Manage: manage},
	}
}

func TestEffectiveCapability(t *testing.T) {
	tests := []struct {
		name   string
		grants []authz.Grant
		held   map[uint64]struct{}
		want   authz.Capability
	}{
		{
			name: "union across roles",
			grants: []authz.Grant{
				grant(1, 111, true, false, false),
				grant(1, 222, false, false, true),
			},
			held: set(111, 222),
			want: authz.Capability{View: true, Create: false, Manage: true},
		},
		{
			name: "grants for roles not held are ignored",
			grants: []authz.Grant{
				grant(1, 111, true, true, true),
			},
			held: set(222),
			want: authz.Capability{},
		},
		{
			name:   "no grants",
			grants: nil,
			held:   set(111),
			want:   authz.Capability{},
		},
		{
			name: "empty role set",
			grants: []authz.Grant{
				grant(1, 111, true, true, true),
			},
			held: set(),
			want: authz.Capability{},
		},
		{
			name: "all-false grant contributes nothing",
			grants: []authz.Grant{
				grant(1, 111, false, false, false),
				grant(1, 222, false, true, false),
			},
			held: set(111, 222),
			want: authz.Capability{Create: true},
		},
		{
			name: "duplicate role grants still union",
			grants: []authz.Grant{
				grant(1, 111, true, false, false),
				grant(1, 111, false, true, false),
			},
			held: set(111),
			want: authz.Capability{View: true, Create: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := authz.EffectiveCapability(tt.grants, tt.held)
			assert.Equal(t, tt.want, got)
		})
	}
}

// The fold must be monotone: adding a role never removes a capability bit.
func TestEffectiveCapabilityMonotone(t *testing.T) {
	grants := []authz.Grant{
		grant(7, 1, true, false, false),
		grant(7, 2, false, true, false),
		grant(7, 3, false, false, true),
	}

	base := authz.EffectiveCapability(grants, set(1))
	wider := authz.EffectiveCapability(grants, set(1, 2, 3))

	assert.True(t, base.View)
	assert.True(t, wider.View && wider.Create && wider.Manage)
}
