package main

import (
	"os"

	"github.com/PaulBabatuyi/clique-gRPC/cmd/clique/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
