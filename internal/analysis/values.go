package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	language "github.com/hanpama/fieldgraph/internal/language"
	schema "github.com/hanpama/fieldgraph/internal/schema"
)

// coerceVariableValues coerces raw variable values against the operation's
// variable definitions. Variables that are neither provided nor defaulted are
// left out of the result.
func coerceVariableValues(
	sch *schema.Schema,
	operation *language.OperationDefinition,
	variableValues map[string]any,
) (map[string]any, error) {
	if variableValues == nil {
		variableValues = make(map[string]any)
	}
	coerced := make(map[string]any)
	for _, varDef := range operation.VariableDefinitions {
		name := varDef.Variable
		t := varDef.Type
		val, ok := variableValues[name]
		if !ok {
			if v2, ok2 := variableValues[strings.TrimPrefix(name, "$")]; ok2 {
				val = v2
				ok = true
			}
		}
		if !ok {
			if varDef.DefaultValue != nil {
				val = language.ValueToGo(varDef.DefaultValue, nil)
			} else if t.NonNull {
				return nil, newError(ErrVariable, varDef.Position, "variable $%s of required type %s was not provided", name, t.String())
			} else {
				continue
			}
		}
		if val == nil && t.NonNull {
			return nil, newError(ErrVariable, varDef.Position, "variable $%s of type %s cannot be null", name, t.String())
		}
		cv, err := coerceValue(sch, val, schema.TypeRefFromAST(t))
		if err != nil {
			return nil, newError(ErrVariable, varDef.Position, "variable $%s of type %s cannot be coerced: %v", name, t.String(), err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

// coerceValue coerces a value to the specified GraphQL input type
func coerceValue(sch *schema.Schema, value any, targetType *schema.TypeRef) (any, error) {
	if schema.IsNonNull(targetType) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type %s", targetType)
		}
		return coerceValue(sch, value, schema.Unwrap(targetType))
	}

	if value == nil {
		return nil, nil
	}

	if targetType.Kind == schema.TypeRefKindList {
		return coerceListValue(sch, value, targetType)
	}

	namedType := schema.GetNamedType(targetType)
	switch namedType {
	case "Int":
		return coerceToInt(value)
	case "Float":
		return coerceToFloat(value)
	case "String":
		return coerceToString(value)
	case "Boolean":
		return coerceToBoolean(value)
	case "ID":
		return coerceToID(value)
	}

	t := sch.Type(namedType)
	if t == nil {
		return nil, fmt.Errorf("unknown type %q", namedType)
	}
	switch t.Kind {
	case schema.TypeKindEnum:
		return coerceToEnum(t, value)
	case schema.TypeKindInputObject:
		return coerceInputObject(sch, t, value)
	case schema.TypeKindScalar:
		// custom scalars pass through
		return value, nil
	default:
		return nil, fmt.Errorf("type %s of kind %s is not an input type", t.Name, t.Kind)
	}
}

// coerceListValue coerces a value to a list. A single value becomes a list of one.
func coerceListValue(sch *schema.Schema, value any, listType *schema.TypeRef) (any, error) {
	innerType := schema.Unwrap(listType)
	if slice, ok := value.([]any); ok {
		coercedSlice := make([]any, len(slice))
		for i, item := range slice {
			coercedItem, err := coerceValue(sch, item, innerType)
			if err != nil {
				return nil, fmt.Errorf("at index %d: %w", i, err)
			}
			coercedSlice[i] = coercedItem
		}
		return coercedSlice, nil
	}

	coercedItem, err := coerceValue(sch, value, innerType)
	if err != nil {
		return nil, err
	}
	return []any{coercedItem}, nil
}

func coerceInputObject(sch *schema.Schema, t *schema.Type, value any) (any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot coerce %v (%T) to input object %s", value, value, t.Name)
	}

	unknown := make([]string, 0)
	for key := range obj {
		if t.InputFieldByName(key) == nil {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown field '%s' for input object %s", unknown[0], t.Name)
	}

	out := make(map[string]any, len(t.InputFields))
	for _, field := range t.InputFields {
		raw, present := obj[field.Name]
		if !present {
			if field.DefaultValue != nil {
				out[field.Name] = field.DefaultValue
			} else if schema.IsNonNull(field.Type) {
				return nil, fmt.Errorf("required field '%s' of input object %s was not provided", field.Name, t.Name)
			}
			continue
		}
		cv, err := coerceValue(sch, raw, field.Type)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", field.Name, err)
		}
		out[field.Name] = cv
	}
	if t.OneOf && len(out) != 1 {
		return nil, fmt.Errorf("oneOf input object %s requires exactly one field", t.Name)
	}
	return out, nil
}

func coerceToEnum(t *schema.Type, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("cannot coerce %v (%T) to enum %s", value, value, t.Name)
	}
	for _, ev := range t.EnumValues {
		if ev.Name == s {
			return s, nil
		}
	}
	return nil, fmt.Errorf("value %q does not exist in enum %s", s, t.Name)
}

func coerceToInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return v, nil
		}
	case int32:
		return int(v), nil
	case int64:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return int(v), nil
		}
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32 {
			return int(v), nil
		}
	case float32:
		if f := float64(v); f == math.Trunc(f) {
			return int(f), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to int", value, value)
}

func coerceToFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to float", value, value)
}

func coerceToString(value any) (any, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to string", value, value)
}

func coerceToBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to boolean", value, value)
}

func coerceToID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to ID", value, value)
}
