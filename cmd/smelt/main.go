package main

import (
	"os"

	"github.com/Hedwyn/smelt/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
