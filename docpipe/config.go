// CLAUDE:SUMMARY Configuration struct and defaults for the source-document extraction pipeline.
package docpipe

import "log/slog"

// Config configures the document pipeline.
type Config struct {
	// MaxFileSize is the largest document accepted (default: 50 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// MaxPages caps the number of PDF pages read (default: 500).
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 50 << 20
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 500
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
