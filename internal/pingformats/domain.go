// Package pingformats manages the field templates a category stamps onto its
// fleets. A format is a named, ordered list of typed fields; fleet creation
// forms render from it.
package pingformats

// FieldType enumerates what kind of input a format field takes.
type FieldType string

const (
	FieldText FieldType = "text"
	FieldBool FieldType = "bool"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	return t == FieldText || t == FieldBool
}

// Field is one slot in a ping format. Lower priority sorts first.
type Field struct {
	ID            int32
	PingFormatID  int32
	Name          string
	Priority      int32
	Type          FieldType
	DefaultValues []string
}

// PingFormat is a guild-scoped field template. CategoryNames lists the fleet
// categories currently using it and is read-only.
type PingFormat struct {
	ID            int32
	GuildID       uint64
	Name          string
	Fields        []Field
	CategoryNames []string
}

// FieldParams carries one field when creating or updating a format.
type FieldParams struct {
	Name          string
	Priority      int32
	Type          FieldType
	DefaultValues []string
}

// FormatParams carries everything needed to create or replace a format.
// The field list is replaced wholesale on update.
type FormatParams struct {
	GuildID uint64
	Name    string
	Fields  []FieldParams
}
