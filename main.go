// The main package for the kafkaviewer executable.
package main

import (
	"github.com/JakeFAU/kafka-viewer/cmd"
)

func main() {
	cmd.Execute()
}
