// Command token issues a caller token for the bridge API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chainsafe/spiral-bridge/pkg/auth"
	"github.com/chainsafe/spiral-bridge/pkg/bridge"
	"github.com/chainsafe/spiral-bridge/pkg/config"
)

func main() {
	caller := flag.String("caller", "", "Base58 identity placed in the token subject")
	issuer := flag.String("issuer", "spiral-bridge", "Token issuer, must match auth.issuer")
	secretEnv := flag.String("secret-env", config.DefaultJWTSecretEnv, "Environment variable holding the HS256 secret")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	id, err := bridge.ParseIdentity(*caller)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -caller: %v\n", err)
		os.Exit(2)
	}
	secret := os.Getenv(*secretEnv)
	if secret == "" {
		fmt.Fprintf(os.Stderr, "%s is not set\n", *secretEnv)
		os.Exit(2)
	}

	token, err := auth.Issue(secret, *issuer, id, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
