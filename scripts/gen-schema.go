//go:build ignore

package main

import (
	"fmt"
	"os"

	"github.com/ormasoftchile/acton/pkg/script"
)

func main() {
	data, err := script.GenerateJSONSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("schemas/script-v0.json", data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote schemas/script-v0.json")
}
