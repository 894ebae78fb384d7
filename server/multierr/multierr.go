package multierr

import (
	e "errors"
	"fmt"
	"strings"

	"github.com/juju/errors"
)

// MultiErr collects errors from a series of independent operations, for
// example closing multiple resources.
type MultiErr struct {
	errors []error
}

func New() *MultiErr {
	return &MultiErr{}
}

// Add does nothing when err is nil.
func (m *MultiErr) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Err returns nil when no errors were added and the error itself when a
// single error was added. Otherwise it returns a new error describing all of
// them, including their stack traces.
func (m *MultiErr) Err() error {
	switch len(m.errors) {
	case 0:
		return nil
	case 1:
		return m.errors[0]
	}

	var sb strings.Builder

	for i, err := range m.errors {
		if i > 0 {
			sb.WriteString("\n")
		}

		fmt.Fprintf(&sb, "%d. %s", i+1, errors.ErrorStack(err))
	}

	return errors.Errorf("There were multiple errors:\n%s", sb.String())
}

// Is unwraps the juju error cause before comparing.
func Is(err, target error) bool {
	return e.Is(errors.Cause(err), target)
}
