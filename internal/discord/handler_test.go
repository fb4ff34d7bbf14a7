package discord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRolesFromReq(t *testing.T) {
	reqs := []SyncRoleReq{
		{RoleID: "111", Name: "FC", Color: "#ff0000", Position: 5},
		{RoleID: "18446744073709551615", Name: "Members", Position: 1},
	}

	roles, err := rolesFromReq(900100200300400500, reqs)
	require.NoError(t, err)
	require.Len(t, roles, 2)

	assert.Equal(t, uint64(111), roles[0].ID)
	assert.Equal(t, uint64(900100200300400500), roles[0].GuildID)
	assert.Equal(t, "FC", roles[0].Name)
	assert.Equal(t, int16(5), roles[0].Position)

	// The max snowflake still parses; every role is pinned to the guild.
	assert.Equal(t, uint64(18446744073709551615), roles[1].ID)
	assert.Equal(t, uint64(900100200300400500), roles[1].GuildID)
}

func TestRolesFromReqRejectsBadRoleID(t *testing.T) {
	reqs := []SyncRoleReq{
		{RoleID: "111", Name: "FC"},
		{RoleID: "not-a-snowflake", Name: "Members"},
	}

	_, err := rolesFromReq(1, reqs)
	var invalid *InvalidRoleIDError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "not-a-snowflake", invalid.Raw)
}

func TestRolesFromReqEmptyPayload(t *testing.T) {
	roles, err := rolesFromReq(1, nil)
	require.NoError(t, err)
	assert.NotNil(t, roles)
	assert.Empty(t, roles)
}
