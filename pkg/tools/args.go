package tools

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"github.com/sameehj/officemcp/pkg/backend"
	"github.com/sameehj/officemcp/pkg/dispatch"
	"github.com/sameehj/officemcp/pkg/envelope"
)

// Arguments arrive already validated, so the helpers only convert. Numbers
// may be json.Number (front-ends decode with UseNumber) or plain Go numbers.

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func argStringDefault(args map[string]any, key, def string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return def
}

func argBool(args map[string]any, key string, def bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return def
}

func argInt(args map[string]any, key string, def int64) (int64, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, dispatch.BadRequest("Field '%s' must be an integer", key)
		}
		return int64(f), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, dispatch.BadRequest("Field '%s' must be an integer", key)
		}
		return int64(n), nil
	case float32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, dispatch.BadRequest("Field '%s' must be an integer", key)
		}
		return i, nil
	}
	return 0, dispatch.BadRequest("Field '%s' must be an integer", key)
}

func argSlice(args map[string]any, key string) []any {
	s, _ := args[key].([]any)
	return s
}

func argStrings(args map[string]any, key string) []string {
	raw := argSlice(args, key)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// extras returns args minus the named keys.
func extras(args map[string]any, known ...string) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	for _, k := range known {
		delete(out, k)
	}
	return out
}

// classify maps backend error classes onto envelope kinds.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var toolErr *dispatch.ToolError
	if errors.As(err, &toolErr) {
		return err
	}
	switch {
	case errors.Is(err, backend.ErrNotConfigured):
		return dispatch.WithKind(envelope.KindUnavailable, err)
	case errors.Is(err, backend.ErrInvalid):
		return dispatch.WithKind(envelope.KindBadRequest, err)
	case errors.Is(err, backend.ErrNotFound):
		return dispatch.WithKind(envelope.KindNotFound, err)
	}
	return err
}
