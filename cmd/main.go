package main

import (
	"os"

	cmd "github.com/kerbaras/mangas/cmd/mangas"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
