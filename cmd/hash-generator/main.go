// Command hash-generator prints the bcrypt hash to configure as
// admin.api_key_hash (EXERCISE_ADMIN_API_KEY_HASH) for a given admin key.
//
// Usage:
//
//	hash-generator -key <admin key>
//	echo -n <admin key> | hash-generator
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/phrazzld/exercise-api/internal/service/auth"
)

func main() {
	key := flag.String("key", "", "admin key to hash; read from stdin when empty")
	flag.Parse()

	secret := *key
	if secret == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "no admin key given: use -key or pipe it on stdin")
			os.Exit(2)
		}
		secret = strings.TrimRight(line, "\r\n")
	}
	if len(secret) < 16 {
		fmt.Fprintln(os.Stderr, "admin key must be at least 16 characters")
		os.Exit(2)
	}

	hash, err := auth.HashSecret(secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating hash: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
