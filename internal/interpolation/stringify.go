package interpolation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Stringify renders a resolved value the way Jinja2 prints it inside a
// larger string. Lists and dicts use Python literal form.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case string:
		return val
	case bool:
		if val {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return formatFloat(val)
	case []any:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = literal(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = literal(k) + ": " + literal(val[k])
		}
		return "{" + strings.Join(items, ", ") + "}"
	}
	return fmt.Sprint(v)
}

// literal renders nested values, quoting strings
func literal(v any) string {
	if s, ok := v.(string); ok {
		return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
	}
	return Stringify(v)
}

// maxPlainFloat is the magnitude from which Python prints floats in
// exponent form
const maxPlainFloat = 1e16

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.Abs(f) >= maxPlainFloat:
		return strconv.FormatFloat(f, 'g', -1, 64)
	case math.Trunc(f) == f:
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
