package runfile

import "errors"

// Failure kinds reported by Source. Callers skip the file and continue.
var (
	ErrDiscovery = errors.New("cannot read directory")
	ErrNotFound  = errors.New("file not found")
	ErrDecode    = errors.New("invalid JSON")
	ErrIO        = errors.New("read failed")
)

// FileError ties a failure kind to the offending path.
type FileError struct {
	Path string
	Kind error
	Err  error
}

func (e *FileError) Error() string {
	if e.Err == nil {
		return e.Path + ": " + e.Kind.Error()
	}
	return e.Path + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is.
func (e *FileError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the failure kind of err, or nil when err did not come from
// this package.
func KindOf(err error) error {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return nil
}
