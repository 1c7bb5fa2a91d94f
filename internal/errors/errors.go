// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrPaginationTerminated signals that the forge stopped answering pages.
// It ends a paginated search and is not reported as a failure.
var ErrPaginationTerminated = errors.New("pagination terminated")

// ErrInvalidRepoFormat is returned when a repository line does not reduce to 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// ErrInputFileNotFound is returned when the repository list file does not exist.
type ErrInputFileNotFound struct {
	Path string
}

func (e *ErrInputFileNotFound) Error() string {
	return fmt.Sprintf("input file %q not found, create it with one repository URL per line", e.Path)
}

// ErrInvalidDurationFormat is returned for interval strings other than '<int>h' or '<int>d'.
type ErrInvalidDurationFormat struct {
	Value string
}

func (e *ErrInvalidDurationFormat) Error() string {
	return fmt.Sprintf("invalid duration string: %q, expected '<int>h' or '<int>d'", e.Value)
}

// ErrForgeFetchFailed wraps a failed repository read. Message holds the
// forge-reported message when there is one.
type ErrForgeFetchFailed struct {
	Repo    string
	Message string
	Err     error
}

func (e *ErrForgeFetchFailed) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("fetch %s: %s", e.Repo, e.Message)
	}
	return fmt.Sprintf("fetch %s: %v", e.Repo, e.Err)
}

func (e *ErrForgeFetchFailed) Unwrap() error { return e.Err }

// ErrRemoteAPI wraps a failed call against the remote database.
type ErrRemoteAPI struct {
	Op  string
	Err error
}

func (e *ErrRemoteAPI) Error() string {
	return fmt.Sprintf("notion %s: %v", e.Op, e.Err)
}

func (e *ErrRemoteAPI) Unwrap() error { return e.Err }
