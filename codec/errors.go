// SPDX-License-Identifier: EPL-2.0

package codec

import "errors"

var (
	ErrUnknownKind = errors.New("no decoder factory registered for codec kind")
)
