package citybuf

import "fmt"

type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// Diagnostic records one recovered problem found while parsing: malformed
// appearance data, a degenerate boundary, a dangling reference. Parsing
// continues past all of these with a documented default.
type Diagnostic struct {
	Severity Severity
	Code     string
	Object   string
	Detail   string
}

func (d Diagnostic) String() string {
	if d.Object != "" {
		return fmt.Sprintf("%s [%s] %s: %s", d.Severity, d.Code, d.Object, d.Detail)
	}
	return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Detail)
}

// Diagnostics is an append-only sink owned by one parse session. Every
// entry is also forwarded to the session logger so problems are visible
// without polling the sink.
type Diagnostics struct {
	logger Logger
	items  []Diagnostic
}

func newDiagnostics(logger Logger) *Diagnostics {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Diagnostics{logger: logger}
}

func (d *Diagnostics) warnf(code, object, format string, args ...any) {
	diag := Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Object:   object,
		Detail:   fmt.Sprintf(format, args...),
	}
	d.items = append(d.items, diag)
	d.logger.Warnf("%s", diag)
}

func (d *Diagnostics) Len() int {
	return len(d.items)
}

// Items returns the recorded diagnostics in emission order.
func (d *Diagnostics) Items() []Diagnostic {
	return d.items
}

// ByCode filters the recorded diagnostics to one code.
func (d *Diagnostics) ByCode(code string) []Diagnostic {
	var out []Diagnostic
	for _, item := range d.items {
		if item.Code == code {
			out = append(out, item)
		}
	}
	return out
}
