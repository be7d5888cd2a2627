package main

import (
	"fmt"
	"os"

	"github.com/fontkeep/fontkeep/internal/validator"
)

func main() {
	if err := validator.RunWorker(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "fontkeep-validator: %v\n", err)
		os.Exit(1)
	}
}
