package cli

import (
	"fmt"
	"os"

	"github.com/roach88/causelog/internal/store"
)

// openStore opens the event log at path. Opening creates a missing file, so
// read-only commands pass mustExist to turn a bad path into a command error
// instead of a fresh empty log.
func openStore(path string, mustExist bool) (*store.Store, error) {
	if mustExist {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
		}
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
