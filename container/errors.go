// SPDX-License-Identifier: EPL-2.0

package container

import "errors"

var (
	ErrTooSmall       = errors.New("container too small")
	ErrInvalidAddress = errors.New("container address not in guest memory")
	ErrUnknownFormat  = errors.New("unrecognized container format")
	ErrBadCodecParams = errors.New("malformed codec or loop parameters")
	ErrOMATooSmall    = errors.New("oma container too small")
	ErrOMAInvalidData = errors.New("malformed oma container")
)
