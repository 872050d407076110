// Command sympack packs script trees into ZIP archives and embeds them
// into executables as main.sym.
package main

import "os"

func main() {
	os.Exit(Execute())
}
