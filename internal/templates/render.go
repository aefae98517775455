package templates

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Values carries the substitution data for one render: numbers from the
// metric raw values plus strings such as the attributed side.
type Values map[string]any

// Numeric wraps a raw-value map for rendering and adds the score.
func Numeric(raw map[string]float64, score float64) Values {
	v := make(Values, len(raw)+1)
	for k, val := range raw {
		v[k] = val
	}
	v["score"] = score
	return v
}

// Render substitutes {placeholder} tokens in text. Whole numbers render
// without a fraction, other floats with one decimal. When any placeholder is
// missing the literal template is returned untouched along with the missing
// names; callers emit the literal text and log the gap.
func Render(text string, values Values) (string, []string) {
	var missing []string
	var out strings.Builder
	rest := text
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			out.WriteString(rest)
			break
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			out.WriteString(rest)
			break
		}
		name := rest[open+1 : open+closing]
		out.WriteString(rest[:open])
		if v, ok := values[name]; ok {
			out.WriteString(formatValue(v))
		} else {
			missing = append(missing, name)
		}
		rest = rest[open+closing+1:]
	}
	if len(missing) > 0 {
		return text, missing
	}
	return out.String(), nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e9 {
			return strconv.Itoa(int(t))
		}
		return strconv.FormatFloat(t, 'f', 1, 64)
	case int:
		return strconv.Itoa(t)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
