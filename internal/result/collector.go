package result

import (
	"errors"
	"fmt"
)

// Collector aggregates non-fatal per-record outcomes across a whole-tape
// scan, so one bad record doesn't abort the run; the caller reports them
// together at the end and uses Failed to pick an exit code.
type Collector struct {
	Outcomes []Outcome
}

// Add records outcome if it isn't OK.
func (c *Collector) Add(outcome Outcome) {
	if outcome.Kind != OK {
		c.Outcomes = append(c.Outcomes, outcome)
	}
}

// AddErr records err as a failed Outcome. A nil err is a no-op.
func (c *Collector) AddErr(err error) {
	if err != nil {
		c.Outcomes = append(c.Outcomes, Outcome{Kind: Err, Message: err.Error()})
	}
}

// Addf records a failed Outcome built from a format string; if no args are
// given, format is used verbatim rather than run through fmt.
func (c *Collector) Addf(format string, args ...interface{}) {
	var err error
	if len(args) > 0 {
		err = fmt.Errorf(format, args...)
	} else {
		err = errors.New(format)
	}
	c.AddErr(err)
}

// Failed reports whether any collected outcome was a hard error (as
// opposed to merely Suppressed).
func (c *Collector) Failed() bool {
	for _, o := range c.Outcomes {
		if o.Kind == Err {
			return true
		}
	}
	return false
}

// Error joins every failed outcome's message onto one line per entry, so a
// Collector can be returned directly as the error from a whole-tape scan.
func (c *Collector) Error() string {
	var b []byte
	for _, o := range c.Outcomes {
		if o.Kind != Err {
			continue
		}
		if len(b) > 0 {
			b = append(b, '\n')
		}
		b = append(b, o.Message...)
	}
	return string(b)
}
