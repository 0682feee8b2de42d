package main

import (
	"os"

	"github.com/rgygrj9sjw-svg/Claims/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
