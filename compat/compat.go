// SPDX-License-Identifier: EPL-2.0

// Package compat holds per-title compatibility policy for the audio
// context. The shims here reproduce behavior a handful of titles rely
// on; none of them is correct in general, so all default to off and
// are enabled per title through configuration.
package compat

import (
	"fmt"
	"os"
	"strconv"

	"github.com/kkyr/fig"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// ATRACCTX_LOOP_STREAM_REWIND=true.
const EnvPrefix = "ATRACCTX"

// Flags is the closed set of compatibility shims.
type Flags struct {
	// LoopStreamRewind auto-rewinds a loop-from-end stream to the loop
	// start once enough frames have been buffered, instead of waiting
	// for playback to reach the loop end.
	LoopStreamRewind bool `fig:"loop_stream_rewind"`

	// KeepLegacyTrailerState keeps the trailer-buffer state when
	// restoring snapshots older than schema 8 instead of remapping it
	// to loop-from-end. Old snapshots never actually had a trailer
	// buffer attached, so this is normally unwanted.
	KeepLegacyTrailerState bool `fig:"keep_legacy_trailer_state"`
}

// Load reads flags from compat.yaml under path (or the working
// directory and ./configs when path is empty), then applies
// environment overrides.
func Load(path string) (Flags, error) {
	var flags Flags
	dirs := []string{path}
	if path == "" {
		dirs = append(dirs, ".", "configs")
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, home+"/.atracctx")
		}
	}
	if err := fig.Load(&flags, fig.File("compat.yaml"), fig.Dirs(dirs...), fig.UseEnv(EnvPrefix)); err != nil {
		return Flags{}, err
	}
	return flags, nil
}

// LoadEnv reads flags from environment variables only, for embedders
// that carry no configuration file at all.
func LoadEnv() (Flags, error) {
	var flags Flags
	for _, v := range []struct {
		name string
		dst  *bool
	}{
		{"LOOP_STREAM_REWIND", &flags.LoopStreamRewind},
		{"KEEP_LEGACY_TRAILER_STATE", &flags.KeepLegacyTrailerState},
	} {
		raw, ok := os.LookupEnv(EnvPrefix + "_" + v.name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return Flags{}, fmt.Errorf("parse %s: %w", v.name, err)
		}
		*v.dst = parsed
	}
	return flags, nil
}
