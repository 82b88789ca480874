package sbus

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelRange indicates a channel index outside 0..NumChannels-1.
	ErrChannelRange = errors.New("channel index out of range")
)

// ChannelRangeError reports the offending channel index.
type ChannelRangeError struct {
	Index int
}

// Error implements error.
func (e *ChannelRangeError) Error() string {
	return fmt.Sprintf("channel index %d out of range [0, %d]", e.Index, NumChannels-1)
}

// Unwrap makes errors.Is(err, ErrChannelRange) work.
func (e *ChannelRangeError) Unwrap() error {
	return ErrChannelRange
}
