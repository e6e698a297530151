package base

import "errors"

var (
	ErrUnexpectedNodeKind = errors.New("decoded node has unexpected kind")
	ErrBadNodeEncoding    = errors.New("node bytes are malformed")
	ErrKeysUnsorted       = errors.New("node keys must be strictly ascending")
)
