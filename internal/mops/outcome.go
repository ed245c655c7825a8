package mops

import (
	"fmt"
	"io"
)

// ReportType selects which filing a query targets.
type ReportType int

const (
	// Financial is a quarterly financial report (mtype A).
	Financial ReportType = iota
	// Annual is the shareholders' annual report (mtype F).
	Annual
)

func (t ReportType) String() string {
	switch t {
	case Financial:
		return "financial"
	case Annual:
		return "annual"
	default:
		return fmt.Sprintf("ReportType(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t ReportType) MarshalText() ([]byte, error) {
	switch t {
	case Financial, Annual:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("mops: unknown report type %d", int(t))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ReportType) UnmarshalText(b []byte) error {
	rt, err := ParseReportType(string(b))
	if err != nil {
		return err
	}
	*t = rt
	return nil
}

// ParseReportType parses "financial" or "annual".
func ParseReportType(s string) (ReportType, error) {
	switch s {
	case "financial":
		return Financial, nil
	case "annual":
		return Annual, nil
	default:
		return 0, fmt.Errorf("mops: unknown report type %q", s)
	}
}

// Status is the kind of an Outcome.
type Status int

const (
	// StatusSuccess means Body holds the document bytes.
	StatusSuccess Status = iota
	// StatusNotFound means the portal has no matching document.
	StatusNotFound
	// StatusFailure means a transport, status, input or parse error.
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotFound:
		return "not_found"
	case StatusFailure:
		return "failure"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome is the result of resolving one query. Only a successful outcome
// carries a Body, which the receiver must close.
type Outcome struct {
	Status Status
	Body   io.ReadCloser
	Reason string
}

// Success wraps a document stream.
func Success(body io.ReadCloser) Outcome {
	return Outcome{Status: StatusSuccess, Body: body}
}

// NotFound reports that no matching document exists.
func NotFound(reason string) Outcome {
	return Outcome{Status: StatusNotFound, Reason: reason}
}

// Failure reports an error while resolving.
func Failure(reason string) Outcome {
	return Outcome{Status: StatusFailure, Reason: reason}
}

// Failuref is Failure with formatting.
func Failuref(format string, args ...any) Outcome {
	return Failure(fmt.Sprintf(format, args...))
}
