package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/agenticgokit/agtrace/cmd"
	"github.com/agenticgokit/agtrace/internal/utils"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var exitErr *utils.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
