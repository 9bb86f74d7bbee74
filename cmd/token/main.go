// Command token issues a signed access token for a tenant user.
//
// Usage:
//
//	go run ./cmd/token -tenant shop-01 -user cashier-7 [-email a@b.c] [-roles cashier,manager] [-ttl 8h]
//
// The signing secret and issuer come from the same environment as the server.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	appctx "magasin/internal/core/context"
	"magasin/internal/config"
	"magasin/internal/domain/auth"
)

func main() {
	tenantID := flag.String("tenant", "", "tenant identifier (required)")
	userID := flag.String("user", "", "user identifier (required)")
	email := flag.String("email", "", "user email")
	roles := flag.String("roles", "", "comma-separated roles")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to JWT_TTL")
	flag.Parse()

	if *tenantID == "" || *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	jwtCfg := auth.JWTConfig{
		Secret:         cfg.JWTSecret,
		Issuer:         cfg.JWTIssuer,
		AccessTokenTTL: cfg.JWTTTL,
	}
	if *ttl > 0 {
		jwtCfg.AccessTokenTTL = *ttl
	}

	user := appctx.UserContext{
		UserID:   *userID,
		TenantID: *tenantID,
		Email:    *email,
		Roles:    splitRoles(*roles),
	}

	token, expiresAt, err := auth.NewJWTService(jwtCfg).GenerateAccessToken(user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Println(token)
}

func splitRoles(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
