// Command cdctape reads and extracts SIMH-container tape images captured
// from CDC 6000/Cyber mainframe systems.
package main

import (
	"os"

	"cdctape/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
