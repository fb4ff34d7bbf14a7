package pingformats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldTypeValid(t *testing.T) {
	assert.True(t, FieldText.Valid())
	assert.True(t, FieldBool.Valid())
	assert.False(t, FieldType("dropdown").Valid())
	assert.False(t, FieldType("").Valid())
}

func TestToDTO(t *testing.T) {
	format := PingFormat{
		ID:      3,
		GuildID: 900100200300400500,
		Name:    "Stratop Ping",
		Fields: []Field{
			{ID: 10, PingFormatID: 3, Name: "Doctrine", Priority: 0, Type: FieldText, DefaultValues: []string{"Ferox", "Hurricane"}},
			{ID: 11, PingFormatID: 3, Name: "Capitals", Priority: 1, Type: FieldBool},
		},
		CategoryNames: []string{"Home Defense", "Stratops"},
	}

	dto := toDTO(format)
	assert.Equal(t, "900100200300400500", dto.GuildID)
	assert.Equal(t, 2, dto.CategoryCount)
	require.Len(t, dto.Fields, 2)
	assert.Equal(t, "text", dto.Fields[0].Type)
	assert.Equal(t, []string{"Ferox", "Hurricane"}, dto.Fields[0].DefaultValues)
	// Empty default lists serialize as [], not null.
	assert.NotNil(t, dto.Fields[1].DefaultValues)
	assert.Empty(t, dto.Fields[1].DefaultValues)
}

func TestParamsFromReqNormalizesDefaults(t *testing.T) {
	req := FormatReq{
		Name: "Roam Ping",
		Fields: []FieldReq{
			{Name: "FC", Priority: 0, Type: "text"},
		},
	}

	params := paramsFromReq(1, req)
	require.Len(t, params.Fields, 1)
	assert.Equal(t, FieldText, params.Fields[0].Type)
	assert.NotNil(t, params.Fields[0].DefaultValues)
}
