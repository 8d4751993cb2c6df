package schema

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/facilimate/tquery/types"
)

// ValueValidator checks a single filter operand against the rule implied by
// the column type and operator.
type ValueValidator func(val interface{}) error

const (
	// DateFormat is the accepted date operand layout (ISO-8601 date).
	DateFormat = "2006-01-02"
)

// ValidatorFor returns the operand validation rule for the given operator on
// this column type. Substring-match operators always validate as a plain
// string regardless of the base type; everything else depends on the
// non-null base type.
func (t ColumnType) ValidatorFor(op types.Operator) (ValueValidator, error) {
	if op == types.OpNull {
		return validateAbsent, nil
	}
	if types.OperatorIn(op, types.LikeOperators) {
		return validateString, nil
	}
	elem, err := t.elementValidator(op)
	if err != nil {
		return nil, err
	}
	if types.OperatorIn(op, types.ArrayOperators) || (op == types.OpEq && t.IsList()) {
		return validateList(elem), nil
	}
	return elem, nil
}

// elementValidator validates a single (non-list) operand value.
func (t ColumnType) elementValidator(op types.Operator) (ValueValidator, error) {
	trimmed := types.OperatorIn(op, types.TrimmedOperators)
	switch t.NotNullBaseType() {
	case TypeBool, TypeIsNull, TypeIsNotNull:
		return validateBool, nil
	case TypeInt:
		return validateInt, nil
	case TypeString, TypeText, TypeStringList:
		if trimmed {
			return validateTrimmedString, nil
		}
		return validateString, nil
	case TypeUUID, TypeDict, TypeUUIDList, TypeDictList:
		return validateUUID, nil
	case TypeDate:
		return validateDate, nil
	case TypeDatetime:
		return validateDatetime, nil
	default:
		return nil, fmt.Errorf("type %s does not accept filter values", t)
	}
}

func validateAbsent(val interface{}) error {
	if val != nil {
		return fmt.Errorf("operator takes no value")
	}
	return nil
}

func validateBool(val interface{}) error {
	if _, ok := val.(bool); !ok {
		return fmt.Errorf("must be a boolean")
	}
	return nil
}

func validateInt(val interface{}) error {
	switch v := val.(type) {
	case int, int32, int64:
		return nil
	case float64:
		if v != math.Trunc(v) {
			return fmt.Errorf("must be an integer")
		}
		return nil
	default:
		return fmt.Errorf("must be an integer")
	}
}

func validateString(val interface{}) error {
	if _, ok := val.(string); !ok {
		return fmt.Errorf("must be a string")
	}
	return nil
}

func validateTrimmedString(val interface{}) error {
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("must be a string")
	}
	if s != strings.TrimSpace(s) {
		return fmt.Errorf("must not have leading or trailing whitespace")
	}
	return nil
}

func validateUUID(val interface{}) error {
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("must be a string")
	}
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("must be a valid uuid")
	}
	return nil
}

func validateDate(val interface{}) error {
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("must be a string")
	}
	if _, err := time.Parse(DateFormat, s); err != nil {
		return fmt.Errorf("must be a date in YYYY-MM-DD format")
	}
	return nil
}

// validateDatetime accepts RFC 3339 timestamps in UTC only.
func validateDatetime(val interface{}) error {
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("must be a string")
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("must be an RFC 3339 timestamp")
	}
	if _, offset := parsed.Zone(); offset != 0 {
		return fmt.Errorf("must be expressed in UTC")
	}
	return nil
}

func validateList(elem ValueValidator) ValueValidator {
	return func(val interface{}) error {
		list, ok := val.([]interface{})
		if !ok {
			return fmt.Errorf("must be a list")
		}
		for i, member := range list {
			if err := elem(member); err != nil {
				return fmt.Errorf("member %d: %w", i, err)
			}
		}
		return nil
	}
}
