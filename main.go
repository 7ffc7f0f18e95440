package main

import (
	"os"

	"eve-hubarb/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
