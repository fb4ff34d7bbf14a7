package categories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsFromReq(t *testing.T) {
	cooldown := int64(900)
	req := CategoryReq{
		Name:             "Stratops",
		PingFormatID:     3,
		PingCooldownSecs: &cooldown,
		AccessRoles: []AccessRoleReq{
			{RoleID: "111", CanView: true, CanCreate: true},
			{RoleID: "222", CanManage: true},
		},
	}

	params, err := paramsFromReq(900100200300400500, req)
	require.NoError(t, err)

	assert.Equal(t, uint64(900100200300400500), params.GuildID)
	assert.Equal(t, "Stratops", params.Name)
	require.NotNil(t, params.PingCooldown)
	assert.Equal(t, 15*time.Minute, *params.PingCooldown)
	assert.Nil(t, params.PingReminder)
	require.Len(t, params.AccessRoles, 2)
	assert.Equal(t, GrantParams{RoleID: 111, CanView: true, CanCreate: true}, params.AccessRoles[0])
	assert.Equal(t, GrantParams{RoleID: 222, CanManage: true}, params.AccessRoles[1])
}

func TestParamsFromReqRejectsBadRoleID(t *testing.T) {
	req := CategoryReq{
		Name:         "Stratops",
		PingFormatID: 3,
		AccessRoles:  []AccessRoleReq{{RoleID: "not-a-snowflake", CanView: true}},
	}

	_, err := paramsFromReq(1, req)
	var invalid *InvalidRoleIDError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "not-a-snowflake", invalid.Raw)
}

func TestToDTOFormatsSnowflakesAsStrings(t *testing.T) {
	reminder := 30 * time.Minute
	cat := Category{
		ID:           7,
		GuildID:      900100200300400500,
		PingFormatID: 2,
		Name:         "Home Defense",
		PingReminder: &reminder,
		AccessRoles: []AccessRole{
			{RoleID: 18446744073709551615, RoleName: "FC", Position: 5, CanView: true, CanManage: true},
		},
	}

	dto := toDTO(cat)
	assert.Equal(t, "900100200300400500", dto.GuildID)
	require.NotNil(t, dto.PingReminderSecs)
	assert.Equal(t, int64(1800), *dto.PingReminderSecs)
	assert.Nil(t, dto.PingCooldownSecs)
	require.Len(t, dto.AccessRoles, 1)
	assert.Equal(t, "18446744073709551615", dto.AccessRoles[0].RoleID)
	assert.True(t, dto.AccessRoles[0].CanManage)
	assert.False(t, dto.AccessRoles[0].CanCreate)
}
