package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/deploykit/swarmgen/internal/core/config"
	"github.com/deploykit/swarmgen/internal/shell/output"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitValidationError = 2
	ExitWriteError      = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	settings, err := LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}
	logger := SetupLogger(settings)

	cmd := newRootCmd(settings, logger)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		var schemaErr *config.SchemaError
		var validationErr *config.ValidationError
		var writeErr *output.WriteError
		switch {
		case errors.As(err, &schemaErr), errors.As(err, &validationErr):
			return ExitValidationError
		case errors.As(err, &writeErr):
			return ExitWriteError
		default:
			return ExitConfigError
		}
	}
	return ExitSuccess
}
