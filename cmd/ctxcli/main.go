package main

import (
	"os"

	"github.com/dmitrijs2005/ctxvault/internal/client/cli"
)

func main() {
	os.Exit(cli.Execute())
}
