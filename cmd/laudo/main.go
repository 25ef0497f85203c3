// Command laudo serves the inspection report form and generates reports
// from the command line.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "laudo: %v\n", err)
		os.Exit(1)
	}
}
