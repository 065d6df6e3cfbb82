package meshobjects

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a malformed or insufficient topology.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// DuplicateNameError reports a name declared more than once in one synthesis pass.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate name %q", e.Name)
}

// UnknownReferenceError reports a reference to a resource that was never declared.
type UnknownReferenceError struct {
	Name string
	// The referencing resource, if known.
	From string
	Err  error
}

func (e *UnknownReferenceError) Error() string {
	msg := fmt.Sprintf("unknown reference %q", e.Name)
	if e.From != "" {
		msg = fmt.Sprintf("%s from %q", msg, e.From)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnknownReferenceError) Unwrap() error {
	return e.Err
}

// UnresolvedServiceError reports a service whose discovery registration does not exist yet.
// It is the only error expected to clear on its own once provisioning catches up.
type UnresolvedServiceError struct {
	Identity  string
	Namespace string
}

func (e *UnresolvedServiceError) Error() string {
	return fmt.Sprintf("no discovery registration for service %q in namespace %q", e.Identity, e.Namespace)
}

// CyclicDependencyError means the synthesizer produced a dependency cycle.
// It indicates a bug, never bad input.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("dependency cycle between [%s]", strings.Join(e.Cycle, ", "))
}
