package pipeline

import (
	"errors"
	"fmt"

	"speedraw/models"
)

// Error kinds. Match them with errors.Is against a *StageError.
var (
	ErrUpload    = errors.New("upload error")
	ErrInference = errors.New("inference error")
	ErrPersist   = errors.New("persist error")
	ErrRender    = errors.New("render error")
)

// StageError is a failure raised by one pipeline stage.
type StageError struct {
	Kind    error // one of ErrUpload, ErrInference, ErrPersist, ErrRender
	Stage   models.Stage
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the collaborator error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Is matches the error kind sentinels.
func (e *StageError) Is(target error) bool {
	return target == e.Kind
}

// stageError tags err with the stage that failed. A StageError of another
// kind found in err is re-tagged, keeping its message and cause.
func stageError(kind error, stage models.Stage, err error) *StageError {
	var existing *StageError
	if errors.As(err, &existing) {
		if existing.Kind == kind && existing.Stage == stage {
			return existing
		}
		return &StageError{Kind: kind, Stage: stage, Message: existing.Message, Err: existing.Err}
	}
	return &StageError{Kind: kind, Stage: stage, Message: err.Error(), Err: err}
}

// UploadError wraps a storage failure.
func UploadError(err error) *StageError { return stageError(ErrUpload, models.StageUpload, err) }

// InferenceError wraps a line art inference failure.
func InferenceError(err error) *StageError { return stageError(ErrInference, models.StageInfer, err) }

// PersistError wraps a failure to store the line art.
func PersistError(err error) *StageError { return stageError(ErrPersist, models.StageInfer, err) }

// RenderError wraps an animation render failure.
func RenderError(err error) *StageError { return stageError(ErrRender, models.StageRender, err) }
