package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"
)

// Result is the outcome of one validation pass. Valid is true iff Errors is empty.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate checks an argument map against a tool input schema.
//
// Errors are reported in a fixed order: missing required fields in declaration
// order, then violations for each supplied argument in sorted key order. The
// top-level object rejects undeclared arguments unless the schema explicitly
// sets additionalProperties to true; nested objects accept them unless the
// nested schema explicitly sets it to false.
//
// Validate never panics. A fault inside the walk, such as an uncompilable
// pattern, produces a single "Validation error: ..." entry.
func Validate(args map[string]any, node *Node) (res Result) {
	v := &validator{errs: []string{}}
	defer func() {
		if r := recover(); r != nil {
			res = faulted(fmt.Errorf("%v", r))
		}
	}()

	v.arguments(args, node)
	if v.fault != nil {
		return faulted(v.fault)
	}
	return Result{Valid: len(v.errs) == 0, Errors: v.errs}
}

func faulted(err error) Result {
	return Result{Valid: false, Errors: []string{"Validation error: " + err.Error()}}
}

type validator struct {
	errs  []string
	fault error
}

func (v *validator) addf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Sprintf(format, args...))
}

func (v *validator) fail(err error) {
	if v.fault == nil {
		v.fault = err
	}
}

func (v *validator) arguments(args map[string]any, node *Node) {
	var obj *ObjectConstraints
	if node != nil {
		obj = node.Object
	}
	if obj != nil {
		for _, name := range obj.Required {
			if _, ok := args[name]; !ok {
				v.addf("Missing required field: '%s'", name)
			}
		}
	}
	for _, name := range sortedKeys(args) {
		if prop, ok := obj.Property(name); ok {
			v.field(args[name], prop, name)
			continue
		}
		if !obj.allowsAdditional(false) {
			v.addf("Unknown field: '%s'", name)
		}
	}
}

func (v *validator) field(value any, node *Node, label string) {
	if node == nil {
		node = &Node{}
	}
	kind := kindOf(value)
	if kind == TypeNull {
		if !node.Nullable() {
			v.addf("Field '%s' cannot be null", label)
		}
		return
	}
	if len(node.Types) > 0 && !typeMatches(kind, node.Types) {
		v.addf("Field '%s' must be of type %s, got %s", label, formatTypes(node.Types), actualType(kind, value))
		return
	}

	switch kind {
	case TypeString:
		v.str(toString(value), node.String, label)
	case TypeInteger, TypeNumber:
		f, _ := toFloat(value)
		v.number(f, node.Number, label)
	case TypeArray:
		v.array(toSlice(value), node.Array, label)
	case TypeObject:
		v.object(toMap(value), node.Object, label)
	}

	if node.Enum != nil && !containsLiteral(node.Enum, value) {
		v.addf("Field '%s' must be one of %s, got '%s'", label, formatList(node.Enum), formatValue(value))
	}
}

func (v *validator) str(value string, c *StringConstraints, label string) {
	if c == nil {
		return
	}
	length := utf8.RuneCountInString(value)
	if c.MinLength != nil && length < *c.MinLength {
		v.addf("Field '%s' must be at least %d characters long", label, *c.MinLength)
	}
	if c.MaxLength != nil && length > *c.MaxLength {
		v.addf("Field '%s' must be at most %d characters long", label, *c.MaxLength)
	}
	if c.Pattern != "" {
		re, err := compilePattern(c.Pattern)
		if err != nil {
			v.fail(err)
			return
		}
		if !re.MatchString(value) {
			v.addf("Field '%s' does not match required pattern", label)
		}
	}
	switch c.Format {
	case FormatURI:
		if !uriPattern.MatchString(value) {
			v.addf("Field '%s' must be a valid URI", label)
		}
	case FormatEmail:
		if !emailPattern.MatchString(value) {
			v.addf("Field '%s' must be a valid email address", label)
		}
	}
}

func (v *validator) number(value float64, c *NumberConstraints, label string) {
	if c == nil {
		return
	}
	if c.Minimum != nil && value < *c.Minimum {
		v.addf("Field '%s' must be at least %s", label, formatFloat(*c.Minimum))
	}
	if c.Maximum != nil && value > *c.Maximum {
		v.addf("Field '%s' must be at most %s", label, formatFloat(*c.Maximum))
	}
	if c.ExclusiveMinimum != nil && value <= *c.ExclusiveMinimum {
		v.addf("Field '%s' must be greater than %s", label, formatFloat(*c.ExclusiveMinimum))
	}
	if c.ExclusiveMaximum != nil && value >= *c.ExclusiveMaximum {
		v.addf("Field '%s' must be less than %s", label, formatFloat(*c.ExclusiveMaximum))
	}
	if c.MultipleOf != nil {
		if *c.MultipleOf <= 0 {
			v.fail(fmt.Errorf("multipleOf must be greater than zero, got %s", formatFloat(*c.MultipleOf)))
			return
		}
		if math.Mod(value, *c.MultipleOf) != 0 {
			v.addf("Field '%s' must be a multiple of %s", label, formatFloat(*c.MultipleOf))
		}
	}
}

func (v *validator) array(items []any, c *ArrayConstraints, label string) {
	if c == nil {
		return
	}
	if c.MinItems != nil && len(items) < *c.MinItems {
		v.addf("Field '%s' must have at least %d items", label, *c.MinItems)
	}
	if c.MaxItems != nil && len(items) > *c.MaxItems {
		v.addf("Field '%s' must have at most %d items", label, *c.MaxItems)
	}
	if c.Items != nil {
		for i, item := range items {
			v.field(item, c.Items, fmt.Sprintf("%s[%d]", label, i))
		}
	}
	if c.UniqueItems {
		seen := make(map[string]struct{}, len(items))
		for _, item := range items {
			seen[formatValue(item)] = struct{}{}
		}
		if len(seen) != len(items) {
			v.addf("Field '%s' must contain unique items", label)
		}
	}
}

func (v *validator) object(value map[string]any, c *ObjectConstraints, label string) {
	if c == nil {
		return
	}
	if c.MinProperties != nil && len(value) < *c.MinProperties {
		v.addf("Field '%s' must have at least %d properties", label, *c.MinProperties)
	}
	if c.MaxProperties != nil && len(value) > *c.MaxProperties {
		v.addf("Field '%s' must have at most %d properties", label, *c.MaxProperties)
	}
	for _, name := range c.Required {
		if _, ok := value[name]; !ok {
			v.addf("Field '%s' is missing required property '%s'", label, name)
		}
	}
	for _, name := range sortedKeys(value) {
		if prop, ok := c.Property(name); ok {
			v.field(value[name], prop, label+"."+name)
			continue
		}
		if !c.allowsAdditional(true) {
			v.addf("Field '%s' has unexpected property '%s'", label, name)
		}
	}
}

var (
	uriPattern   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z\d+\-.]*://\S+$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	patternCache sync.Map
)

type cachedPattern struct {
	re  *regexp.Regexp
	err error
}

// compilePattern anchors the pattern so it must match the whole value.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		c := cached.(cachedPattern)
		return c.re, c.err
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		err = fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	patternCache.Store(pattern, cachedPattern{re: re, err: err})
	return re, err
}

func typeMatches(kind Type, declared []Type) bool {
	if slices.Contains(declared, kind) {
		return true
	}
	return kind == TypeInteger && slices.Contains(declared, TypeNumber)
}

// kindOf maps a Go value to its JSON type. Values decoded with json.Number keep
// the integer/number distinction of the literal; plain floats are integers when
// they carry no fractional part.
func kindOf(value any) Type {
	switch x := value.(type) {
	case nil:
		return TypeNull
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case json.Number:
		if strings.ContainsAny(x.String(), ".eE") {
			return TypeNumber
		}
		return TypeInteger
	case float64:
		return floatKind(x)
	case float32:
		return floatKind(float64(x))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger
	case []any:
		return TypeArray
	case map[string]any:
		return TypeObject
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return TypeNull
		}
		return kindOf(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return TypeNull
		}
		return TypeArray
	case reflect.Array:
		return TypeArray
	case reflect.Map:
		if rv.IsNil() {
			return TypeNull
		}
		if rv.Type().Key().Kind() == reflect.String {
			return TypeObject
		}
	case reflect.String:
		return TypeString
	case reflect.Bool:
		return TypeBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInteger
	case reflect.Float32, reflect.Float64:
		return floatKind(rv.Float())
	}
	return ""
}

func floatKind(f float64) Type {
	if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) {
		return TypeInteger
	}
	return TypeNumber
}

func actualType(kind Type, value any) string {
	if kind == "" {
		return fmt.Sprintf("%T", value)
	}
	return string(kind)
}

func toFloat(value any) (float64, bool) {
	switch x := value.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	}
	rv := reflect.Indirect(reflect.ValueOf(value))
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func toString(value any) string {
	if str, ok := value.(string); ok {
		return str
	}
	return reflect.Indirect(reflect.ValueOf(value)).String()
}

func toSlice(value any) []any {
	if items, ok := value.([]any); ok {
		return items
	}
	rv := reflect.Indirect(reflect.ValueOf(value))
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func toMap(value any) map[string]any {
	if m, ok := value.(map[string]any); ok {
		return m
	}
	rv := reflect.Indirect(reflect.ValueOf(value))
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
