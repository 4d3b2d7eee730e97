package main

import (
	"os"

	"cliploop/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
