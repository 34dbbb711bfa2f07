package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCycleError_Message(t *testing.T) {
	err := &CycleError{Chain: []TemplateName{"A", "B", "C", "A"}}
	assert.Equal(t, `circular reference in templates: "A -> B -> C -> A"`, err.Error())
}

func TestUnresolvedReferenceError_Message(t *testing.T) {
	assert.Equal(t,
		`group "Linux servers" does not exist (referenced by template "Template OS Linux")`,
		ErrUnresolvedGroup("Linux servers", "Template OS Linux").Error())
	assert.Equal(t,
		`parent template "Base" of template "Child" cannot be resolved`,
		ErrUnresolvedParent("Base", "Child").Error())
}

func TestRemoteOperationError_Unwrap(t *testing.T) {
	cause := ErrConflict("template already exists")
	err := fmt.Errorf("iteration 2: %w", ErrRemote("create", cause))

	var remote *RemoteOperationError
	assert.True(t, errors.As(err, &remote))
	assert.Equal(t, "create", remote.Operation)

	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}
