package source

import "fmt"

// ── Errors ──────────────────────────────────────────────────
// Typed failures for registration and lookup. Connector-level failures
// (I/O, transport, parse) live in internal/connector; everything here
// is registry-level.

// DuplicateNameError rejects a registration whose name is taken.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("data source %q is already registered", e.Name)
}

// InvalidConfigError rejects a registration whose config fails the
// kind-specific preconditions.
type InvalidConfigError struct {
	Kind   Kind
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid %s config: %s", e.Kind, e.Reason)
}

// NotFoundError reports a lookup for a name that was never registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("data source %q is not registered", e.Name)
}

// KindMismatchError reports a descriptor used through the wrong
// connector, e.g. a csv source handed to query_sql.
type KindMismatchError struct {
	Name string
	Want Kind
	Got  Kind
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("data source %q is of kind %s, not %s", e.Name, e.Got, e.Want)
}
