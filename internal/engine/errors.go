package engine

import (
	"errors"
	"fmt"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
)

// Sentinel errors for errors.Is checks.
var (
	ErrValidation        = errors.New("graph validation error")
	ErrUnresolvedBranch  = errors.New("unresolved branch")
	ErrStepExecution     = errors.New("step execution error")
	ErrLoopLimitExceeded = errors.New("loop limit exceeded")
	ErrQueueFull         = errors.New("run queue is full")
	ErrNotStarted        = errors.New("run workers not started")
)

type ValidationKind string

const (
	InvalidEntry       ValidationKind = "InvalidEntry"
	UnknownStep        ValidationKind = "UnknownStep"
	UnknownSource      ValidationKind = "UnknownSource"
	UnknownDestination ValidationKind = "UnknownDestination"
	AmbiguousRouting   ValidationKind = "AmbiguousRouting"
)

// ValidationError rejects a graph definition at submission time.
// Field names the offending payload field, Node the offending name.
type ValidationError struct {
	Kind  ValidationKind
	Field string
	Node  string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s: %s", ErrValidation.Error(), e.Kind, e.Field, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Kind, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UnresolvedBranchError is raised when a conditional node wrote a value
// with no matching entry in its conditional mapping.
type UnresolvedBranchError struct {
	Node  string
	Value core.Value
}

func (e *UnresolvedBranchError) Error() string {
	if e.Value.IsNull() {
		return fmt.Sprintf("%s: node %q did not set state[%q]", ErrUnresolvedBranch.Error(), e.Node, e.Node)
	}
	return fmt.Sprintf("%s: node %q produced %q which has no conditional edge", ErrUnresolvedBranch.Error(), e.Node, e.Value.String())
}

func (e *UnresolvedBranchError) Unwrap() error { return ErrUnresolvedBranch }

// StepExecutionError wraps a failure signalled by a step implementation.
type StepExecutionError struct {
	Node string
	Err  error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("%s: node %q: %v", ErrStepExecution.Error(), e.Node, e.Err)
}

func (e *StepExecutionError) Unwrap() []error { return []error{ErrStepExecution, e.Err} }
