package main

import (
	"fmt"
	"os"

	"healthgate/pkg/secrets"
)

// main emits a fresh token signing secret plus an operator key with its
// bcrypt hash, ready to paste into the environment.
func main() {
	signingKey, err := secrets.Generate()
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate signing key:", err)
		os.Exit(1)
	}

	adminKey, err := secrets.Generate()
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate operator key:", err)
		os.Exit(1)
	}
	adminHash, err := secrets.Hash(adminKey)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash operator key:", err)
		os.Exit(1)
	}

	fmt.Printf("TOKEN_SIGNING_KEY=%s\n", signingKey)
	fmt.Printf("ADMIN_KEY_HASH=%s\n", adminHash)
	fmt.Println()
	fmt.Println("# Operator key (store securely, it is not recoverable from the hash):")
	fmt.Printf("# %s\n", adminKey)
}
