package repositories

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrAlreadyLiked indicates the user has already liked the video.
	ErrAlreadyLiked = errors.New("video already liked by user")
	// ErrNotLiked indicates the user has not previously liked the video.
	ErrNotLiked = errors.New("video not liked by user")
)
