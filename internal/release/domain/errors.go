package domain

import "fmt"

// PreconditionError means a policy check failed before any mutation.
// The process aborts immediately and leaves no partial state.
type PreconditionError struct {
	Check  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition %s failed: %s", e.Check, e.Reason)
}

// ConfigConflictError means two mutually exclusive options were both set.
// Raised before anything is loaded.
type ConfigConflictError struct {
	OptionA string
	OptionB string
}

func (e *ConfigConflictError) Error() string {
	return fmt.Sprintf("options %s and %s are mutually exclusive", e.OptionA, e.OptionB)
}

// UnknownPackageError means a change request names a package that is not in
// the workspace inventory. The request is skipped; the run continues.
type UnknownPackageError struct {
	PackageName string
	File        string
}

func (e *UnknownPackageError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("unknown package %q", e.PackageName)
	}
	return fmt.Sprintf("change request %s references unknown package %q", e.File, e.PackageName)
}

// PublishError wraps a failed registry publish for one package. The run
// continues to the remaining packages but reports an overall failure;
// already-published packages are never rolled back.
type PublishError struct {
	PackageName string
	Err         error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publishing %s: %v", e.PackageName, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// SourceControlError wraps a failed git operation and names the
// orchestration step it aborted. Fatal: the state machine stops at this
// step, and any registry artifacts already published stay published, leaving
// the repository behind the registry until an operator intervenes.
type SourceControlError struct {
	Step string
	Err  error
}

func (e *SourceControlError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *SourceControlError) Unwrap() error { return e.Err }
