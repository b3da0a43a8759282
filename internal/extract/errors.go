package extract

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for paths whose extension has no extractor.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ExtractionError reports a source file that could not be read or parsed.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func extractionError(path string, err error) error {
	if err == nil {
		return nil
	}
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return err
	}
	return &ExtractionError{Path: path, Err: err}
}
