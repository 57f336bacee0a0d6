package main

import (
	"fmt"
	"os"

	"github.com/marcelsud/webhook-receiver/bindings"
)

/* validate-bindings - Standalone CLI tool to validate bindings.yaml
 * Usage: go run cmd/validate-bindings/main.go [bindings.yaml]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	// Get bindings file path from args or use default
	bindingsFile := "bindings.yaml"
	if len(os.Args) > 1 {
		bindingsFile = os.Args[1]
	}

	fmt.Printf("Validating bindings file: %s\n", bindingsFile)

	loader := bindings.NewLoader()
	if err := loader.Load(bindingsFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	loaded := loader.List()
	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d binding(s):\n", len(loaded))

	for i, binding := range loaded {
		fmt.Printf("\n%d. Service: %s\n", i+1, binding.ServiceID)
		fmt.Printf("   Handler: %s\n", binding.Handler)
	}

	fmt.Printf("\n✓ All bindings are valid!\n")
	os.Exit(0)
}
