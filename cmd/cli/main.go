// profjson - Device Profile to JSON Converter
//
// profjson reads device profile dumps and writes their instance, class and
// magnitude definitions as a single normalized JSON document.
package main

import (
	"os"

	"github.com/ccollicutt/profjson/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
