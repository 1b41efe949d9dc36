package pipeline

import "fmt"

// DecodeError reports malformed input bytes or a mismatch between the
// declared and decoded dimensions. The rectifier never runs for such input.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error (%s): %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a failure while encoding the corrected image.
type EncodeError struct {
	Format string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode error (%s): %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
