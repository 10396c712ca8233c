package source

import "fmt"

// ── Descriptor ──────────────────────────────────────────────
// A Descriptor names one external data source and carries the
// kind-specific configuration needed to reach it. Descriptors are
// immutable once registered: there is no update or delete, they live
// until the process exits.

// Kind is the fixed category of a data source.
type Kind string

const (
	KindSQLite Kind = "sqlite" // file-backed relational database
	KindAPI    Kind = "api"    // remote HTTP endpoint
	KindCSV    Kind = "csv"    // delimited text file
	KindJSON   Kind = "json"   // structured document file
)

// Kinds lists every registrable kind.
func Kinds() []Kind {
	return []Kind{KindSQLite, KindAPI, KindCSV, KindJSON}
}

// FileBacked reports whether the kind reads a local file.
func (k Kind) FileBacked() bool {
	return k == KindSQLite || k == KindCSV || k == KindJSON
}

// Config is an opaque configuration map validated per kind at
// registration time and echoed back to callers unchanged.
type Config map[string]any

// Descriptor is the stored record for one registered data source.
type Descriptor struct {
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
	Config Config `json:"config"`
}

// Path returns the config "path" entry of a file-backed descriptor.
func (d Descriptor) Path() string {
	p, _ := d.Config["path"].(string)
	return p
}

// URL returns the config "url" entry of an api descriptor.
func (d Descriptor) URL() string {
	u, _ := d.Config["url"].(string)
	return u
}

// Headers returns the base header set of an api descriptor. Header
// values are rendered to strings; a missing or non-map entry yields nil.
func (d Descriptor) Headers() map[string]string {
	switch h := d.Config["headers"].(type) {
	case map[string]string:
		out := make(map[string]string, len(h))
		for k, v := range h {
			out[k] = v
		}
		return out
	case map[string]any:
		out := make(map[string]string, len(h))
		for k, v := range h {
			out[k] = fmt.Sprint(v)
		}
		return out
	}
	return nil
}
