package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Operator is a comparison operator used by triggers and transforms.
type Operator string

// Supported operators.
const (
	OpEq Operator = "="
	OpNe Operator = "!="
	OpLt Operator = "<"
	OpGt Operator = ">"
	OpLe Operator = "<="
	OpGe Operator = ">="
)

// ParseOperator validates s as an Operator.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(s); op {
	case OpEq, OpNe, OpLt, OpGt, OpLe, OpGe:
		return op, nil
	default:
		return "", fmt.Errorf("%w: unknown operator %q", ErrInvalidCatalog, s)
	}
}

// Number converts any Go numeric kind (or json.Number) to float64.
func Number(v any) (float64, bool) {
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
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Compare evaluates left op right. Numbers compare numerically and strings
// lexically; bools only support = and !=. Values of different kinds are
// never equal. A numeric string is ordered against a number by its value,
// so "5" < 6 holds while "5" = 5 does not.
func Compare(left any, op Operator, right any) (bool, error) {
	if l, ok := Number(left); ok {
		if r, ok := Number(right); ok {
			return ordered(l, op, r)
		}
		return mixed(left, op, right)
	}
	switch l := left.(type) {
	case string:
		if r, ok := right.(string); ok {
			return ordered(l, op, r)
		}
	case bool:
		if r, ok := right.(bool); ok {
			switch op {
			case OpEq:
				return l == r, nil
			case OpNe:
				return l != r, nil
			default:
				return false, fmt.Errorf("%w: %s on booleans", ErrIncomparable, op)
			}
		}
	}
	return mixed(left, op, right)
}

func mixed(left any, op Operator, right any) (bool, error) {
	switch op {
	case OpEq:
		return false, nil
	case OpNe:
		return true, nil
	}
	l, lok := numeric(left)
	r, rok := numeric(right)
	if !lok || !rok {
		return false, fmt.Errorf("%w: %T %s %T", ErrIncomparable, left, op, right)
	}
	return ordered(l, op, r)
}

// numeric reads a number or a string holding a finite number.
func numeric(v any) (float64, bool) {
	if n, ok := Number(v); ok {
		return n, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func ordered[T float64 | string](l T, op Operator, r T) (bool, error) {
	switch op {
	case OpEq:
		return l == r, nil
	case OpNe:
		return l != r, nil
	case OpLt:
		return l < r, nil
	case OpGt:
		return l > r, nil
	case OpLe:
		return l <= r, nil
	case OpGe:
		return l >= r, nil
	default:
		return false, fmt.Errorf("%w: unknown operator %q", ErrIncomparable, op)
	}
}
