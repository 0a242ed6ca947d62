// Package routing decides stage-to-stage transitions from branching conditions
// and submitted form data.
package routing

import (
	"errors"
	"math"
	"math/big"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
)

// EvaluateCondition reports whether data satisfies condition. Values follow
// loose dynamic-typing rules: numbers of any Go numeric type compare by
// value, an absent key equals nothing (not even nil), and non-numeric
// operands of ordering comparisons make the comparison false. Unknown
// operators evaluate false.
func EvaluateCondition(condition models.StageCondition, data map[string]any) bool {
	value, present := data[condition.FieldKey]

	switch condition.Operator {
	case models.OperatorEquals:
		return present && strictEqual(value, condition.Value)
	case models.OperatorNotEquals:
		return !present || !strictEqual(value, condition.Value)
	case models.OperatorContains:
		return contains(value, condition.Value)
	case models.OperatorGreaterThan:
		return toNumber(value, present) > toNumber(condition.Value, true)
	case models.OperatorLessThan:
		return toNumber(value, present) < toNumber(condition.Value, true)
	case models.OperatorIsEmpty:
		return isEmpty(value)
	case models.OperatorIsNotEmpty:
		return isNotEmpty(value)
	default:
		return false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// strictEqual compares scalars without type coercion. Lists and objects are
// never equal.
func strictEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)

		return ok && af == bf
	}

	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)

		return ok && av == bv
	case bool:
		bv, ok := b.(bool)

		return ok && av == bv
	default:
		return false
	}
}

// stringify renders a scalar the way it would appear when concatenated into
// text: integral floats have no fraction digits.
func stringify(v any) string {
	if f, ok := asFloat(v); ok {
		if math.IsInf(f, 1) {
			return "Infinity"
		}

		if math.IsInf(f, -1) {
			return "-Infinity"
		}

		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	switch s := v.(type) {
	case nil:
		return "null"
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func contains(haystack, needle any) bool {
	if s, ok := haystack.(string); ok {
		return strings.Contains(s, stringify(needle))
	}

	rv := reflect.ValueOf(haystack)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}

	for i := range rv.Len() {
		if strictEqual(rv.Index(i).Interface(), needle) {
			return true
		}
	}

	return false
}

// toNumber coerces v to a number; NaN marks values without a numeric reading.
// Lists read as the comma-joined text of their elements.
func toNumber(v any, present bool) float64 {
	if !present {
		return math.NaN()
	}

	if f, ok := asFloat(v); ok {
		return f
	}

	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}

		return 0
	case string:
		return parseNumber(x)
	}

	if text, ok := listText(v); ok {
		return parseNumber(text)
	}

	return math.NaN()
}

var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// parseNumber reads decimal literals, signed Infinity and unsigned 0x, 0o and
// 0b integers. Blank text is zero; anything else is NaN.
func parseNumber(text string) float64 {
	s := strings.TrimSpace(text)

	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0

		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}

		if base != 0 {
			if s[2] == '+' || s[2] == '-' {
				return math.NaN()
			}

			n, ok := new(big.Int).SetString(s[2:], base)
			if !ok {
				return math.NaN()
			}

			f, _ := new(big.Float).SetInt(n).Float64()

			return f
		}
	}

	if !decimalLiteral.MatchString(s) {
		return math.NaN()
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}

	return f
}

// listText joins list elements with commas; nil elements render empty and
// nested lists are flattened the same way.
func listText(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return "", false
	}

	parts := make([]string, rv.Len())

	for i := range rv.Len() {
		elem := rv.Index(i).Interface()
		if elem == nil {
			continue
		}

		if nested, ok := listText(elem); ok {
			parts[i] = nested

			continue
		}

		if _, isMap := elem.(map[string]any); isMap {
			parts[i] = "[object Object]"

			continue
		}

		parts[i] = stringify(elem)
	}

	return strings.Join(parts, ","), true
}

// truthy treats nil, false, zero, NaN and "" as false; everything else,
// including empty lists and maps, is true.
func truthy(v any) bool {
	if f, ok := asFloat(v); ok {
		return f != 0 && !math.IsNaN(f)
	}

	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	default:
		return true
	}
}

func listLen(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len(), true
	}

	return 0, false
}

func isEmpty(v any) bool {
	if !truthy(v) {
		return true
	}

	n, isList := listLen(v)

	return isList && n == 0
}

func isNotEmpty(v any) bool {
	if !truthy(v) {
		return false
	}

	if s, ok := v.(string); ok && s == "" {
		return false
	}

	n, isList := listLen(v)

	return !isList || n > 0
}
