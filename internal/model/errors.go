package model

import "errors"

// Business rule errors. These abort the enclosing transaction synchronously
// and are reported to the caller; they are never retried by the mailbox.
var (
	ErrShowNotCancellable = errors.New("show is not in a cancellable state")
	ErrInsufficientStock  = errors.New("insufficient stock")
)
