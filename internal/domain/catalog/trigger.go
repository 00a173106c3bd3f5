package catalog

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
)

// Two-character operators come first so "a <= 5" is never read as "<".
var triggerPattern = regexp.MustCompile(`^(\w+)\s*(<=|>=|!=|=|<|>)\s*(.+)$`)

// Trigger is a parsed "<field> <op> <value>" expression.
type Trigger struct {
	Field   string
	Op      Operator
	Literal any
}

// ParseTrigger parses a trigger expression once, at load time.
func ParseTrigger(expr string) (Trigger, error) {
	m := triggerPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return Trigger{}, fmt.Errorf("%w: %q", ErrInvalidTrigger, expr)
	}
	raw := strings.TrimSpace(m[3])
	if raw == "" {
		return Trigger{}, fmt.Errorf("%w: empty value in %q", ErrInvalidTrigger, expr)
	}
	return Trigger{Field: m[1], Op: Operator(m[2]), Literal: ParseLiteral(raw)}, nil
}

// ParseLiteral reads "true"/"false" as bool, then a finite number, else the
// raw string.
func ParseLiteral(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return raw
}

// Eval reports whether the trigger holds for record. A missing field, or a
// value that cannot be compared with the literal, evaluates to false.
func (t Trigger) Eval(record model.DailyRecord) bool {
	v, ok := record[t.Field]
	if !ok {
		return false
	}
	res, err := Compare(v, t.Op, t.Literal)
	if err != nil {
		return false
	}
	return res
}

func (t Trigger) String() string {
	return fmt.Sprintf("%s %s %v", t.Field, t.Op, t.Literal)
}
