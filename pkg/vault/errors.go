package vault

import "errors"

var (
	ErrEmptyPath     = errors.New("path cannot be empty")
	ErrEmptyID       = errors.New("token id cannot be empty")
	ErrEmptyPrefix   = errors.New("prefix cannot be empty")
	ErrEmptyRoleId   = errors.New("role id cannot be empty")
	ErrEmptySecretId = errors.New("secret id cannot be empty")
)
