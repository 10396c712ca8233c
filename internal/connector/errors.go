package connector

// ── Connector errors ────────────────────────────────────────
// Every I/O, transport, or parse failure raised while executing an
// operation against an external store is wrapped in *Error. Connectors
// never retry: the first failure is surfaced immediately and the
// invocation fails.

// Error wraps an underlying failure with the connector operation that
// raised it.
type Error struct {
	Op  string // "query", "call", "read csv", "read json"
	Err error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}
