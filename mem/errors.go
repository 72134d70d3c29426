// SPDX-License-Identifier: EPL-2.0

package mem

import "errors"

var (
	ErrBadAddress = errors.New("address outside emulated memory")
)
