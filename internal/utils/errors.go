package utils

import "fmt"

// ImageError reports a failure at the image I/O boundary (decode, encode,
// dimension checks). Op names the failing operation.
type ImageError struct {
	Op  string
	Err error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %s error: %v", e.Op, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }
