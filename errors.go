package bootstrap

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type errType string

const (
	permissionErrType           = "PermissionError"
	resourceCreationErrType     = "ResourceCreationError"
	incompleteFilesystemErrType = "IncompleteFilesystemError"
	launchErrType               = "LaunchError"
	containerNotFoundErrType    = "ContainerNotFoundError"
	handleTakenErrType          = "HandleTakenError"
)

// Error wraps the typed error kinds so they survive a trip over the API.
type Error struct {
	Err error
}

func NewError(err string) *Error {
	return &Error{Err: errors.New(err)}
}

type marshalledError struct {
	Type    errType
	Message string
	Handle  string
	Op      string
}

func (m Error) Error() string {
	return m.Err.Error()
}

func (m Error) StatusCode() int {
	switch m.Err.(type) {
	case ContainerNotFoundError:
		return http.StatusNotFound
	case HandleTakenError:
		return http.StatusConflict
	case PermissionError:
		return http.StatusForbidden
	}

	return http.StatusInternalServerError
}

func (m Error) MarshalJSON() ([]byte, error) {
	var errorType errType
	handle := ""
	op := ""
	switch err := m.Err.(type) {
	case PermissionError:
		errorType = permissionErrType
		op = err.Op
	case ResourceCreationError:
		errorType = resourceCreationErrType
	case IncompleteFilesystemError:
		errorType = incompleteFilesystemErrType
	case LaunchError:
		errorType = launchErrType
	case ContainerNotFoundError:
		errorType = containerNotFoundErrType
		handle = err.Handle
	case HandleTakenError:
		errorType = handleTakenErrType
		handle = err.Handle
	}

	return json.Marshal(marshalledError{
		Type:    errorType,
		Message: m.Err.Error(),
		Handle:  handle,
		Op:      op,
	})
}

func (m *Error) UnmarshalJSON(data []byte) error {
	var result marshalledError

	if err := json.Unmarshal(data, &result); err != nil {
		return err
	}

	switch result.Type {
	case permissionErrType:
		m.Err = PermissionError{Op: result.Op}
	case resourceCreationErrType:
		m.Err = ResourceCreationError{Message: result.Message}
	case incompleteFilesystemErrType:
		m.Err = IncompleteFilesystemError{Message: result.Message}
	case launchErrType:
		m.Err = LaunchError{Message: result.Message}
	case containerNotFoundErrType:
		m.Err = ContainerNotFoundError{Handle: result.Handle}
	case handleTakenErrType:
		m.Err = HandleTakenError{Handle: result.Handle}
	default:
		m.Err = errors.New(result.Message)
	}

	return nil
}

// PermissionError reports that the caller does not hold the privilege a
// provisioning step needs (all of them require root).
type PermissionError struct {
	Op string
}

func (err PermissionError) Error() string {
	return fmt.Sprintf("%s requires root privileges", err.Op)
}

// ResourceCreationError reports that a limit-group, namespace, or network
// link could not be created.
type ResourceCreationError struct {
	Resource string
	Message  string
}

func NewResourceCreationError(resource string, cause error) ResourceCreationError {
	return ResourceCreationError{
		Resource: resource,
		Message:  fmt.Sprintf("failed to create %s: %s", resource, cause),
	}
}

func (err ResourceCreationError) Error() string {
	return err.Message
}

// IncompleteFilesystemError reports a shared-library dependency that could
// not be resolved while assembling the root filesystem tree.
type IncompleteFilesystemError struct {
	Executable string
	Library    string
	Message    string
}

func NewIncompleteFilesystemError(executable, library string) IncompleteFilesystemError {
	return IncompleteFilesystemError{
		Executable: executable,
		Library:    library,
		Message:    fmt.Sprintf("cannot resolve library %s needed by %s", library, executable),
	}
}

func (err IncompleteFilesystemError) Error() string {
	return err.Message
}

// LaunchError reports that the isolated process failed to start, or that a
// setup step inside the new namespaces failed before the shell was exec'd.
type LaunchError struct {
	Message string
}

func NewLaunchError(cause error) LaunchError {
	return LaunchError{Message: fmt.Sprintf("failed to launch container process: %s", cause)}
}

func (err LaunchError) Error() string {
	return err.Message
}

type ContainerNotFoundError struct {
	Handle string
}

func (err ContainerNotFoundError) Error() string {
	return fmt.Sprintf("unknown handle: %s", err.Handle)
}

type HandleTakenError struct {
	Handle string
}

func (err HandleTakenError) Error() string {
	return fmt.Sprintf("handle already in use: %s", err.Handle)
}

// TeardownWarning records a cleanup step that could not fully complete.
// Warnings never abort the remaining cleanup steps.
type TeardownWarning struct {
	Step    string
	Message string
}

func NewTeardownWarning(step string, cause error) TeardownWarning {
	return TeardownWarning{Step: step, Message: cause.Error()}
}

func (w TeardownWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Step, w.Message)
}
