package core

import (
	"errors"
	"fmt"
)

// InitErrorCode categorizes fatal construction failures.
type InitErrorCode string

const (
	// ErrCodeSnapshotInit indicates the snapshot store could not be opened.
	ErrCodeSnapshotInit InitErrorCode = "SNAPSHOT_INIT"

	// ErrCodeVFSInit indicates the virtual filesystem could not be created.
	ErrCodeVFSInit InitErrorCode = "VFS_INIT"
)

// InitError is a fatal engine-construction failure.
//
// These are environment/configuration failures (an uncreatable work
// directory, a missing build root): there is no degraded mode, so no Core is
// produced. The error is returned rather than aborting the process - the
// embedding caller decides whether to terminate or report upward.
type InitError struct {
	Code InitErrorCode
	Path string
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Path, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// IsSnapshotInitError reports whether err is a snapshot-store construction
// failure. Uses errors.As to handle wrapped errors.
func IsSnapshotInitError(err error) bool {
	var ie *InitError
	return errors.As(err, &ie) && ie.Code == ErrCodeSnapshotInit
}

// IsVFSInitError reports whether err is a VFS construction failure.
func IsVFSInitError(err error) bool {
	var ie *InitError
	return errors.As(err, &ie) && ie.Code == ErrCodeVFSInit
}

// PostForkError is a fatal failure of the post-fork protocol.
//
// A forked child whose pool or VFS could not be rebuilt cannot make
// progress. Kept distinct from InitError so a supervising process can tell
// "this environment can never boot" from "retry the fork sequencing".
type PostForkError struct {
	// Stage is the step that failed: "vfs" or "pool".
	Stage string
	Err   error
}

func (e *PostForkError) Error() string {
	return fmt.Sprintf("post-fork %s reinit failed: %v", e.Stage, e.Err)
}

func (e *PostForkError) Unwrap() error {
	return e.Err
}

// IsPostForkError reports whether err came from the post-fork protocol.
func IsPostForkError(err error) bool {
	var pe *PostForkError
	return errors.As(err, &pe)
}
