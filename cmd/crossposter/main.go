// Command crossposter watches chats for tagged messages and cross-posts the approved ones
package main

import (
	"fmt"
	"os"

	"crossposter/cmd/crossposter/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
