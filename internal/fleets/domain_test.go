package fleets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibleAt(t *testing.T) {
	base := time.Date(2026, time.March, 1, 20, 0, 0, 0, time.UTC)
	reminder := 30 * time.Minute

	tests := []struct {
		name    string
		fleet   Fleet
		now     time.Time
		visible bool
	}{
		{
			name:    "not hidden is always visible",
			fleet:   Fleet{FleetTime: base},
			now:     base.Add(-24 * time.Hour),
			visible: true,
		},
		{
			name:    "hidden before reminder window",
			fleet:   Fleet{Hidden: true, FleetTime: base, PingReminder: &reminder},
			now:     base.Add(-31 * time.Minute),
			visible: false,
		},
		{
			name:    "hidden once reminder window opens",
			fleet:   Fleet{Hidden: true, FleetTime: base, PingReminder: &reminder},
			now:     base.Add(-30 * time.Minute),
			visible: true,
		},
		{
			name:    "hidden without reminder stays hidden until start",
			fleet:   Fleet{Hidden: true, FleetTime: base},
			now:     base.Add(-time.Second),
			visible: false,
		},
		{
			name:    "hidden without reminder visible at start",
			fleet:   Fleet{Hidden: true, FleetTime: base},
			now:     base,
			visible: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.visible, tt.fleet.VisibleAt(tt.now))
		})
	}
}

func TestParamsFromReq(t *testing.T) {
	when := time.Date(2026, time.March, 1, 20, 0, 0, 0, time.FixedZone("CET", 3600))
	desc := "home defense form up"
	req := FleetReq{
		CategoryID:  4,
		Name:        "Hurricane Roam",
		CommanderID: "123456789",
		FleetTime:   when,
		Description: &desc,
		FieldValues: map[string]string{"Doctrine": "Hurricanes"},
		Hidden:      true,
	}

	params, err := paramsFromReq(900100200300400500, req)
	require.NoError(t, err)

	assert.Equal(t, uint64(123456789), params.CommanderID)
	assert.Equal(t, time.UTC, params.FleetTime.Location())
	assert.True(t, params.FleetTime.Equal(when))
	assert.True(t, params.Hidden)
	assert.Equal(t, "Hurricanes", params.FieldValues["Doctrine"])
}

func TestParamsFromReqRejectsBadCommanderID(t *testing.T) {
	req := FleetReq{CategoryID: 1, Name: "x", CommanderID: "-5", FleetTime: time.Now()}

	_, err := paramsFromReq(1, req)
	var invalid *InvalidCommanderIDError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "-5", invalid.Raw)
}
