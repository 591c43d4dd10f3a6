package main

import (
	"os"

	"github.com/todolists/todolists-go/internal/cli"
)

func main() {
	if err := cli.NewRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
