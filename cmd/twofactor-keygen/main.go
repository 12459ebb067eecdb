package main

import (
	"fmt"
	"log"

	"github.com/veilauth/twofactor/pkg/secrets"
)

func main() {
	encodedKey, err := secrets.GenerateEncodedKey()
	if err != nil {
		log.Fatalf("Failed to generate encryption key: %v", err)
	}

	fmt.Printf("Generated encryption key (for TWOFACTOR_ENCRYPTION_KEY env var):\n%s\n", encodedKey)
}
