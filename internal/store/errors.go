package store

import "errors"

var (
	// ErrAlreadyExists is returned when creating a user whose name is taken.
	ErrAlreadyExists = errors.New("user already exists")
	// ErrNotFound is returned when a requested user does not exist in the store.
	ErrNotFound = errors.New("user not found")
	// ErrWrongPassword is returned when the current password does not verify.
	ErrWrongPassword = errors.New("wrong password")
	// ErrMismatch is returned when a new password and its confirmation differ.
	ErrMismatch = errors.New("passwords do not match")
)
