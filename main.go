package main

import (
	"os"

	"studysync/cli"
)

func main() {
	os.Exit(cli.Execute())
}
