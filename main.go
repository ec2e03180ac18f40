// The main package for the crawlscope executable.
package main

import (
	"github.com/crawlscope/crawlscope/cmd"
)

func main() {
	cmd.Execute()
}
