package launcher

import "errors"

// Sentinel errors for the tool registry.
var (
	ErrUnknownTool = errors.New("unknown tool")
	ErrDuplicateID = errors.New("tool already registered")
	ErrEmptyID     = errors.New("tool id is empty")
	ErrNoActivate  = errors.New("tool has no activation")
)
