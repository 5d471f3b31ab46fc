// Command hashpw prints the bcrypt hash of a password, for seeding user
// accounts by hand.
package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "uso: hashpw <password>")
		os.Exit(1)
	}
	password := os.Args[1]

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error al encriptar: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Contraseña original: %s\n", password)
	fmt.Printf("Hash generado: %s\n", hash)
}
