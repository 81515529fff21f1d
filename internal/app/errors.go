package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrQueueFull         = errors.New("snapshot queue full")
	ErrNoSource          = errors.New("no CRM source configured")
	ErrRefreshInProgress = errors.New("refresh already in progress")
	ErrListUsers         = errors.New("list sales users failed")
)
