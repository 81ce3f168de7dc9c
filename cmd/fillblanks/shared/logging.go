package shared

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// SetupLogger builds the root logger writing to stderr at the named level
// (debug, info, warn or error).
func SetupLogger(level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	}), nil
}
