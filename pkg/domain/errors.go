package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned when a business configuration cannot be used to build a flow.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrDuplicateVariable is returned when a variable name is declared twice in one flow.
var ErrDuplicateVariable = errors.New("duplicate variable")

// ErrDuplicateNode is returned when two nodes of one flow share an id.
var ErrDuplicateNode = errors.New("duplicate node id")

// ErrUnknownNodeKind is returned when a node kind name is not recognized.
var ErrUnknownNodeKind = errors.New("unknown node kind")

// ErrUnknownTemplate is returned when no flow template is registered under a name.
var ErrUnknownTemplate = errors.New("unknown template")

// ErrLeadNotFound is returned when a lead cannot be found in the store.
var ErrLeadNotFound = errors.New("lead not found")

// ErrDeploymentNotFound is returned when no deployment record exists for an agent.
var ErrDeploymentNotFound = errors.New("deployment not found")

// InvalidConfigurationError names the field that made a configuration unusable.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: field %q: %s", e.Field, e.Reason)
}

func (e *InvalidConfigurationError) Unwrap() error { return ErrInvalidConfiguration }

// DuplicateVariableError reports a second declaration of the same variable name.
type DuplicateVariableError struct {
	Name       string
	FirstNode  string
	SecondNode string
}

func (e *DuplicateVariableError) Error() string {
	return fmt.Sprintf("variable %q declared at node %q is declared again at node %q", e.Name, e.FirstNode, e.SecondNode)
}

func (e *DuplicateVariableError) Unwrap() error { return ErrDuplicateVariable }

// DuplicateNodeError reports a node id added twice to one flow.
type DuplicateNodeError struct {
	ID string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("duplicate node id %q", e.ID)
}

func (e *DuplicateNodeError) Unwrap() error { return ErrDuplicateNode }

// PhoneFormatWarning reports a phone number that could not be normalized to valid E.164.
// It never blocks a build.
type PhoneFormatWarning struct {
	Field      string
	Original   string
	Normalized string
	Reason     string
}

func (w PhoneFormatWarning) String() string {
	return fmt.Sprintf("%s: %q normalized to %q: %s (SMS confirmations may not work)", w.Field, w.Original, w.Normalized, w.Reason)
}
