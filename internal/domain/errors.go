// Package domain defines core types, interfaces, and errors for the template importer.
package domain

import (
	"fmt"
	"strings"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// CycleError reports a circular parent-template chain. Chain starts and ends
// with the same name, e.g. [A B C A].
type CycleError struct {
	Chain []TemplateName
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, name := range e.Chain {
		parts[i] = string(name)
	}
	return fmt.Sprintf("circular reference in templates: %q", strings.Join(parts, " -> "))
}

// Reference kinds carried by UnresolvedReferenceError.
const (
	ReferenceGroup    = "group"
	ReferenceTemplate = "template"
)

// UnresolvedReferenceError indicates that a template references a group or a
// parent template that neither exists in the backend nor was created by the
// current import run.
type UnresolvedReferenceError struct {
	Kind     string // ReferenceGroup or ReferenceTemplate
	Name     string
	Template TemplateName
}

func (e *UnresolvedReferenceError) Error() string {
	switch e.Kind {
	case ReferenceGroup:
		return fmt.Sprintf("group %q does not exist (referenced by template %q)", e.Name, e.Template)
	default:
		return fmt.Sprintf("parent template %q of template %q cannot be resolved", e.Name, e.Template)
	}
}

// RemoteOperationError wraps a failed create or update batch call.
type RemoteOperationError struct {
	Operation string // "create" or "update"
	Err       error
}

func (e *RemoteOperationError) Error() string {
	return fmt.Sprintf("template %s failed: %v", e.Operation, e.Err)
}

func (e *RemoteOperationError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnresolvedGroup creates an UnresolvedReferenceError for a host group.
func ErrUnresolvedGroup(group GroupName, template TemplateName) *UnresolvedReferenceError {
	return &UnresolvedReferenceError{Kind: ReferenceGroup, Name: string(group), Template: template}
}

// ErrUnresolvedParent creates an UnresolvedReferenceError for a parent template.
func ErrUnresolvedParent(parent, template TemplateName) *UnresolvedReferenceError {
	return &UnresolvedReferenceError{Kind: ReferenceTemplate, Name: string(parent), Template: template}
}

// ErrRemote wraps err as a RemoteOperationError for the given operation.
func ErrRemote(operation string, err error) *RemoteOperationError {
	return &RemoteOperationError{Operation: operation, Err: err}
}
