package repository

import "errors"

// Sentinel kinds for ranking store errors.
var (
	ErrNotFound     = errors.New("salesperson not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrInvalidID    = errors.New("sales id must not be empty")
	ErrInvalidScore = errors.New("composite score out of range")
)
