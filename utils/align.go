// SPDX-License-Identifier: EPL-2.0

package utils

// AlignDown rounds v down to a multiple of step. step must be non-zero.
func AlignDown(v, step uint32) uint32 {
	return v / step * step
}
