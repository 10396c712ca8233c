package transform

import (
	"fmt"

	"datagate/internal/source"
)

// ── Aggregate stage ─────────────────────────────────────────
// Declared operation surface over connector rows. The stage is an
// acknowledged extension point: it validates that the named source
// exists and describes what the operation would do, but it fetches no
// rows and computes nothing. Result.Computed stays false until the
// stage grows a real implementation.

// Operation is one entry of the declared aggregation vocabulary.
type Operation string

const (
	OpCount   Operation = "count"
	OpSum     Operation = "sum"
	OpAverage Operation = "average"
	OpGroupBy Operation = "group_by"
)

// Operations lists the declared vocabulary.
func Operations() []Operation {
	return []Operation{OpCount, OpSum, OpAverage, OpGroupBy}
}

// Result acknowledges a requested aggregation without executing it.
type Result struct {
	Source    string
	Operation Operation
	Field     string
	Computed  bool
	Note      string
}

// Describe validates operation and source and returns the
// acknowledgement. It succeeds whenever the descriptor exists, no
// matter the source kind or field.
func Describe(reg *source.Registry, sourceName string, op Operation, field string) (Result, error) {
	if !known(op) {
		return Result{}, fmt.Errorf("unknown operation %q (supported: count, sum, average, group_by)", string(op))
	}
	d, err := reg.Resolve(sourceName)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Source:    d.Name,
		Operation: op,
		Field:     field,
		Computed:  false,
		Note:      note(op, field),
	}, nil
}

func known(op Operation) bool {
	for _, o := range Operations() {
		if o == op {
			return true
		}
	}
	return false
}

// note spells out what the operation would compute. Field is optional
// at the tool surface, so the wording has to survive an empty one.
func note(op Operation, field string) string {
	target := "the requested field"
	if field != "" {
		target = fmt.Sprintf("field %q", field)
	}
	switch op {
	case OpCount:
		return "would count all rows produced by the source; not executed, no rows were fetched"
	case OpSum:
		return fmt.Sprintf("would sum %s across all rows; not executed, no rows were fetched", target)
	case OpAverage:
		return fmt.Sprintf("would average %s across all rows; not executed, no rows were fetched", target)
	case OpGroupBy:
		return fmt.Sprintf("would group rows by %s; not executed, no rows were fetched", target)
	}
	return ""
}
