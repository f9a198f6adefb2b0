// identifile reports the format of compressed, archived and columnar files
// from their bytes.
//
// Usage:
//
//	identifile detect [paths...|-] [--hint=.ext] [--buffer] [--no-extension-hint] [--json]
//	identifile scan DIR [--pattern=GLOB] [--json]
//	identifile watch DIR [--pattern=GLOB]
//	identifile signatures
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
