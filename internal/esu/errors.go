package esu

import "errors"

// Sentinel errors for product key validation failures. Both abort
// remediation before the license-management tool is ever invoked.
var (
	ErrKeyMissing     = errors.New("product key is empty")
	ErrKeyPlaceholder = errors.New("product key is an unfilled placeholder")
)
