package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/facilimate/tquery/schema"
)

// RenderValue converts a raw row value into its client-facing representation
// for the column type. NULLs stay nil.
func RenderValue(col schema.Column, value interface{}) interface{} {
	if value == nil {
		return nil
	}
	switch col.Type.NotNullBaseType() {
	case schema.TypeBool:
		return cast.ToBool(value)
	case schema.TypeInt, schema.TypeCount:
		return cast.ToInt64(value)
	case schema.TypeString, schema.TypeText:
		return cast.ToString(value)
	case schema.TypeUUID, schema.TypeDict:
		return renderUUID(value)
	case schema.TypeDate:
		if t, ok := value.(time.Time); ok {
			return t.Format(schema.DateFormat)
		}
		return cast.ToString(value)
	case schema.TypeDatetime:
		if t, ok := value.(time.Time); ok {
			return t.UTC().Format(time.RFC3339)
		}
		return cast.ToString(value)
	case schema.TypeStringList:
		return renderList(value, func(member interface{}) interface{} { return cast.ToString(member) })
	case schema.TypeUUIDList, schema.TypeDictList:
		return renderList(value, renderUUID)
	default:
		// list/object values pass through as decoded by the driver.
		return value
	}
}

func renderUUID(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return v
	case [16]byte:
		return uuid.UUID(v).String()
	case uuid.UUID:
		return v.String()
	default:
		return cast.ToString(value)
	}
}

func renderList(value interface{}, render func(interface{}) interface{}) interface{} {
	switch v := value.(type) {
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, member := range v {
			out[i] = render(member)
		}
		return out
	case []string:
		return v
	default:
		return value
	}
}
