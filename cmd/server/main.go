// Command server runs the alert-router HTTP gateway.
package main

import (
	"fmt"
	"os"

	"github.com/vitaliisemenov/alert-router/cmd/server/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
