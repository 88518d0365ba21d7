// Command totpkey prints a fresh TOTP_ENCRYPTION_KEY.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmitrymomot/accesskit/pkg/totp"
)

func main() {
	export := flag.Bool("export", false, "Print as a shell export line")
	flag.Parse()

	key, err := totp.GenerateEncodedEncryptionKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		os.Exit(1)
	}
	if *export {
		fmt.Printf("export TOTP_ENCRYPTION_KEY=%s\n", key)
		return
	}
	fmt.Println(key)
}
