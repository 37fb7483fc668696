//go:build !linux

package transport

import (
	"context"
	"fmt"

	ncerr "ttyrelay/internal/errors"
	"ttyrelay/util"
)

// StartPTY reports that pseudo-terminals are not supported here.
func StartPTY(ctx context.Context, line string, cols, rows uint16, logger *util.Logger) (*Link, error) {
	return nil, fmt.Errorf("pty %q: %w", line, ncerr.ErrNotSupported)
}
