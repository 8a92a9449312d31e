package main

import (
	"fmt"
	"os"

	"github.com/keyloom/keyloom-go/cmd/keyloomctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
