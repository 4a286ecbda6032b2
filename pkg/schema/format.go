package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

func formatTypes(types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatList(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatValue(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func containsLiteral(values []any, v any) bool {
	for _, candidate := range values {
		if equalLiteral(candidate, v) {
			return true
		}
	}
	return false
}

// equalLiteral compares two JSON literals. Numbers compare by value regardless
// of their Go representation; booleans never equal numbers.
func equalLiteral(a, b any) bool {
	ka, kb := kindOf(a), kindOf(b)
	if isNumeric(ka) && isNumeric(kb) {
		fa, okA := toFloat(a)
		fb, okB := toFloat(b)
		return okA && okB && fa == fb
	}
	if ka != kb {
		return false
	}
	switch ka {
	case TypeNull:
		return true
	case TypeString:
		return reflect.Indirect(reflect.ValueOf(a)).String() == reflect.Indirect(reflect.ValueOf(b)).String()
	case TypeBoolean:
		return reflect.Indirect(reflect.ValueOf(a)).Bool() == reflect.Indirect(reflect.ValueOf(b)).Bool()
	}
	return reflect.DeepEqual(a, b)
}

func isNumeric(t Type) bool {
	return t == TypeInteger || t == TypeNumber
}
