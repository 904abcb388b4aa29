package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Each typed error below matches exactly one of them
// (InvalidLinkError may also match ErrDanglingReference).
var (
	ErrInvalidLink            = errors.New("invalid link")
	ErrUnknownAlternative     = errors.New("unknown alternative")
	ErrMultipleSources        = errors.New("multiple sources")
	ErrConflictingExport      = errors.New("conflicting export")
	ErrActivationDivergence   = errors.New("activation did not converge")
	ErrUnsupportedDeclaration = errors.New("unsupported declaration")
	ErrUnsupportedVersion     = errors.New("unsupported version")
	ErrDanglingReference      = errors.New("dangling reference")

	// ErrDuplicateName is returned when a node name is already taken in its graph.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrInvalidName is returned for names that cannot be addressed by an endpoint.
	ErrInvalidName = errors.New("invalid name")
	// ErrDocumentNotFound is returned by document stores for unknown pipelines.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrModuleNotFound is returned by catalogs for unknown modules.
	ErrModuleNotFound = errors.New("module not found")
)

// InvalidLinkError reports a link that cannot be added.
type InvalidLinkError struct {
	Source Endpoint
	Dest   Endpoint
	Reason string
	// Dangling is set when an endpoint does not exist.
	Dangling bool
}

func (e *InvalidLinkError) Error() string {
	return fmt.Sprintf("invalid link %s -> %s: %s", e.Source, e.Dest, e.Reason)
}

func (e *InvalidLinkError) Is(target error) bool {
	return target == ErrInvalidLink || (e.Dangling && target == ErrDanglingReference)
}

// UnknownAlternativeError reports a selection naming an undeclared alternative
// (or an undeclared group of a selection parameter).
type UnknownAlternativeError struct {
	Switch      string
	Alternative string
	Declared    []string
}

func (e *UnknownAlternativeError) Error() string {
	return fmt.Sprintf("switch %q has no alternative %q (declared: %v)", e.Switch, e.Alternative, e.Declared)
}

func (e *UnknownAlternativeError) Is(target error) bool { return target == ErrUnknownAlternative }

// MultipleSourcesError reports a second non-weak link into a scalar input.
type MultipleSourcesError struct {
	Dest     Endpoint
	Existing Endpoint
	Incoming Endpoint
}

func (e *MultipleSourcesError) Error() string {
	return fmt.Sprintf("input %s already fed by %s, cannot also link from %s", e.Dest, e.Existing, e.Incoming)
}

func (e *MultipleSourcesError) Is(target error) bool { return target == ErrMultipleSources }

// ConflictingExportError reports an exported name already bound to another plug.
type ConflictingExportError struct {
	Name      string
	Existing  Endpoint
	Requested Endpoint
}

func (e *ConflictingExportError) Error() string {
	return fmt.Sprintf("exported plug %q already aliases %s, cannot alias %s", e.Name, e.Existing, e.Requested)
}

func (e *ConflictingExportError) Is(target error) bool { return target == ErrConflictingExport }

// ActivationDivergenceError reports a recompute that hit its pass cap.
type ActivationDivergenceError struct {
	Pipeline string
	Passes   int
}

func (e *ActivationDivergenceError) Error() string {
	return fmt.Sprintf("activation of pipeline %q did not converge after %d passes", e.Pipeline, e.Passes)
}

func (e *ActivationDivergenceError) Is(target error) bool { return target == ErrActivationDivergence }

// UnsupportedDeclarationError reports an unrecognized tag or key in a document.
type UnsupportedDeclarationError struct {
	Tag     string
	Context string
	Line    int
}

func (e *UnsupportedDeclarationError) Error() string {
	msg := fmt.Sprintf("unsupported declaration %q", e.Tag)
	if e.Context != "" {
		msg += " in " + e.Context
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	return msg
}

func (e *UnsupportedDeclarationError) Is(target error) bool { return target == ErrUnsupportedDeclaration }

// UnsupportedVersionError reports a document version the codec cannot read.
type UnsupportedVersionError struct {
	Found     string
	Supported string
}

func (e *UnsupportedVersionError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("missing document version (supported: %s)", e.Supported)
	}
	return fmt.Sprintf("unsupported document version %q (supported: %s)", e.Found, e.Supported)
}

func (e *UnsupportedVersionError) Is(target error) bool { return target == ErrUnsupportedVersion }

// DanglingReferenceError reports a name that does not resolve.
type DanglingReferenceError struct {
	Kind string // "node", "plug", "switch", "link", "selection", "module"
	Name string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Name)
}

func (e *DanglingReferenceError) Is(target error) bool { return target == ErrDanglingReference }
