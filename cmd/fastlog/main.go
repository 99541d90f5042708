// Command fastlog records and reviews fasting periods.
package main

import (
	"os"

	"github.com/roach88/fastlog/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
