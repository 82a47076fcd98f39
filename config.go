// config.go: Logger configuration and dynamic level reload
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package unilog

import (
	"fmt"
	"time"

	"github.com/agilira/argus"
)

// Config holds configuration options for creating a Logger.
// Only Buffer is required; unset fields use safe defaults.
type Config struct {
	// Buffer is the caller-owned backing storage for the ring. Its length
	// must be a power of two of at least 16 bytes, starting at a 4-byte
	// aligned address. The Logger owns these bytes for its lifetime.
	Buffer []byte `json:"-"`

	// Level is the initial minimum level threshold (default: Trace).
	Level Level `json:"level"`

	// LevelConfigPath optionally names a configuration file (JSON, YAML,
	// TOML, and the other formats Argus understands) whose "level" key is
	// watched for changes. Edits to the file retune the running logger's
	// threshold without a restart.
	LevelConfigPath string `json:"level_config_path"`

	// TimestampFn overrides the timestamp source used by the leveled
	// helpers (Info, Warnf, ...). The raw write operations always take the
	// caller's timestamp and ignore this. Default: cached wall-clock
	// seconds.
	TimestampFn func() uint32 `json:"-"`

	// TimeResolution is the resolution of the internal time cache backing
	// the default timestamp source (default: 1ms).
	TimeResolution time.Duration `json:"time_resolution"`

	// ErrorCallback is invoked when a background operation fails, such as
	// a malformed level in the watched configuration file. Never called on
	// the write or read paths.
	ErrorCallback func(operation string, err error) `json:"-"`
}

// NewWithConfig creates a Logger with detailed configuration.
//
// Example with dynamic level reload:
//
//	config := &unilog.Config{
//		Buffer:          make([]byte, 16384),
//		Level:           unilog.Info,
//		LevelConfigPath: "/etc/myapp/logging.yml",
//		ErrorCallback: func(operation string, err error) {
//			fmt.Fprintf(os.Stderr, "unilog %s: %v\n", operation, err)
//		},
//	}
//	log, err := unilog.NewWithConfig(config)
func NewWithConfig(config *Config) (*Logger, error) {
	if config == nil || config.Buffer == nil {
		return nil, ErrInvalid
	}

	l, err := New(config.Buffer)
	if err != nil {
		return nil, err
	}

	l.minLevel.Store(uint32(config.Level))
	l.timestampFn = config.TimestampFn
	l.timeResolution = config.TimeResolution
	l.errorCallback = config.ErrorCallback

	if config.LevelConfigPath != "" {
		if err := l.WatchLevelFile(config.LevelConfigPath); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// WatchLevelFile watches a configuration file and applies its "level" key
// to the Logger whenever the file changes. The watcher runs until Close or
// until a subsequent WatchLevelFile replaces it.
//
// Accepted level values are the names ParseLevel understands, for example:
//
//	level: warn
func (l *Logger) WatchLevelFile(path string) error {
	watcher, err := argus.UniversalConfigWatcher(path, func(config map[string]interface{}) {
		l.applyDynamicConfig(config)
	})
	if err != nil {
		return err
	}

	if old := l.watcher.Swap(watcher); old != nil {
		if stopErr := old.Stop(); stopErr != nil {
			l.reportError("watcher-stop", stopErr)
		}
	}
	return nil
}

// applyDynamicConfig applies a watched configuration snapshot. Unknown or
// missing keys are ignored; malformed values are reported through the
// error callback and leave the current threshold in place.
func (l *Logger) applyDynamicConfig(config map[string]interface{}) {
	raw, ok := config["level"]
	if !ok {
		return
	}

	name, ok := raw.(string)
	if !ok {
		l.reportError("dynamic-level", fmt.Errorf("level must be a string, got %T", raw))
		return
	}

	level, err := ParseLevel(name)
	if err != nil {
		l.reportError("dynamic-level", err)
		return
	}

	l.SetLevel(level)
}
