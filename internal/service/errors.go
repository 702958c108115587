package service

import "errors"

var (
	// ErrValidation marks input the user has to correct.
	ErrValidation = errors.New("invalid quest")
	// ErrQuestNotFound is returned when no active quest has the given id.
	ErrQuestNotFound = errors.New("quest not found")
	// ErrAlreadyCompleted is returned for a daily quest already done today.
	ErrAlreadyCompleted = errors.New("quest already completed today")
)
