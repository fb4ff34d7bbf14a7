package pingformats

import "strconv"

// FieldReq is one field in a create or update request.
type FieldReq struct {
	Name          string   `json:"name" validate:"required,max=100"`
	Priority      int32    `json:"priority" validate:"gte=0"`
	Type          string   `json:"field_type" validate:"required,oneof=text bool"`
	DefaultValues []string `json:"default_field_values"`
}

// FormatReq is the body for both POST and PUT. The field list is replaced
// wholesale on update.
type FormatReq struct {
	Name   string     `json:"name" validate:"required,max=100"`
	Fields []FieldReq `json:"fields" validate:"dive"`
}

// FieldDTO is the API representation of one format field.
type FieldDTO struct {
	ID            int32    `json:"id"`
	PingFormatID  int32    `json:"ping_format_id"`
	Name          string   `json:"name"`
	Priority      int32    `json:"priority"`
	Type          string   `json:"field_type"`
	DefaultValues []string `json:"default_field_values"`
}

// FormatDTO is the API representation of a ping format.
type FormatDTO struct {
	ID            int32      `json:"id"`
	GuildID       string     `json:"guild_id"`
	Name          string     `json:"name"`
	Fields        []FieldDTO `json:"fields"`
	CategoryCount int        `json:"fleet_category_count"`
	CategoryNames []string   `json:"fleet_category_names"`
}

// FormatListResponse is one page of formats.
type FormatListResponse struct {
	PingFormats []FormatDTO `json:"ping_formats"`
	Total       int         `json:"total"`
	Page        int         `json:"page"`
	PerPage     int         `json:"per_page"`
	TotalPages  int         `json:"total_pages"`
}

func toDTO(f PingFormat) FormatDTO {
	dto := FormatDTO{
		ID:            f.ID,
		GuildID:       strconv.FormatUint(f.GuildID, 10),
		Name:          f.Name,
		Fields:        make([]FieldDTO, 0, len(f.Fields)),
		CategoryCount: len(f.CategoryNames),
		CategoryNames: f.CategoryNames,
	}
	if dto.CategoryNames == nil {
		dto.CategoryNames = []string{}
	}
	for _, field := range f.Fields {
		values := field.DefaultValues
		if values == nil {
			values = []string{}
		}
		dto.Fields = append(dto.Fields, FieldDTO{
			ID:            field.ID,
			PingFormatID:  field.PingFormatID,
			Name:          field.Name,
			Priority:      field.Priority,
			Type:          string(field.Type),
			DefaultValues: values,
		})
	}
	return dto
}
