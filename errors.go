package ben

import (
	"errors"
	"fmt"
)

var (
	// ErrDestinationExists is returned when a transform or encoder would
	// replace an existing file without the overwrite option set.
	ErrDestinationExists = errors.New("destination exists")

	// ErrAlreadyIterating is returned through Decoder.Err when subsample
	// configuration is attempted after iteration has started.
	ErrAlreadyIterating = errors.New("decoder is already iterating")

	// ErrClosed is returned from operations on a closed encoder or decoder.
	ErrClosed = errors.New("closed")
)

// LengthMismatchError indicates a vector whose length differs from the
// file's fixed vector length.
type LengthMismatchError struct {
	Expected int
	Actual   int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("vector length mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// InvalidSelectionError indicates unusable subsample parameters, such as a
// negative range bound or a non-positive stride step.
type InvalidSelectionError struct {
	Reason string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid subsample selection: %s", e.Reason)
}
