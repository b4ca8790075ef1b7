// Prints a bcrypt hash for a staff password, for inserting accounts by hand.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/auth"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/generate_password.go <password>")
	}

	passwords := auth.NewPasswordManager(12)
	hash, err := passwords.HashPassword(os.Args[1])
	if err != nil {
		log.Fatalf("Password rejected: %v", err)
	}

	if err := passwords.VerifyPassword(os.Args[1], hash); err != nil {
		log.Fatalf("Hash verification failed: %v", err)
	}

	fmt.Println(hash)
}
