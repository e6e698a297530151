package veritree

import (
	"errors"

	"veritree/internal/base"
	"veritree/kv"
)

var (
	ErrTreeClosed       = errors.New("tree is closed")
	ErrIndexOutOfRange  = errors.New("command returned an index out of range")
	ErrMissingValueRef  = errors.New("command supplied no value ref provider for an insert")
	ErrInvalidArity     = errors.New("arity must be at least 4")
	ErrInvalidAlpha     = errors.New("alpha must be in (0, 0.5]")

	ErrNodeNotFound       = kv.ErrNotFound
	ErrUnexpectedNodeKind = base.ErrUnexpectedNodeKind
	ErrBadNodeEncoding    = base.ErrBadNodeEncoding
	ErrKeysUnsorted       = base.ErrKeysUnsorted
)
