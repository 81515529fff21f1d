package crm

import "errors"

// Sentinel errors returned by the CRM client.
var (
	ErrInvalidBaseURL = errors.New("crm: invalid base url")
	ErrUnauthorized   = errors.New("crm: unauthorized")
	ErrUpstream       = errors.New("crm: upstream error")
	ErrRequest        = errors.New("crm: request failed")
	ErrDecode         = errors.New("crm: decode response")
)
