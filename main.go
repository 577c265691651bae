package main

import (
	"os"

	"github.com/iAL-2/fed-soma-pipeline/cli"
)

func main() {
	os.Exit(cli.Execute())
}
