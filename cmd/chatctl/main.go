// chatctl is the operator CLI for the chat service's response table.
package main

import (
	"os"

	"github.com/garyellow/chatai/cmd/chatctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
