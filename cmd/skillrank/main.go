package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // All selected skills completed
	ExitIncomplete = 1 // One or more skills did not complete
	ExitError      = 2 // Configuration or runtime error
)

// IncompleteRunError indicates the run itself finished, but at least
// one skill ended up partial or errored.
type IncompleteRunError struct {
	Message string
}

func (e *IncompleteRunError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var incompleteErr *IncompleteRunError
		if errors.As(err, &incompleteErr) {
			os.Exit(ExitIncomplete)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
