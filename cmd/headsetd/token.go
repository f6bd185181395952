package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"headset-bridge/internal/auth"
	"headset-bridge/internal/config"
)

// runToken prints an access token for a local client:
//
//	headsetd token -client softphone -scopes headset:read,headset:control
//
// It reads the same env configuration as the daemon and needs JWT_SECRET.
func runToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	clientID := fs.String("client", "", "client id placed in the token subject")
	scopes := fs.String("scopes", auth.ScopeControl, "comma separated scopes")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	m, err := auth.NewManager(cfg.Auth)
	if err != nil {
		fmt.Fprintf(stderr, "auth: %v\n", err)
		return 1
	}

	var list []string
	for _, s := range strings.Split(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	tok, err := m.Issue(time.Now(), *clientID, list)
	if err != nil {
		fmt.Fprintf(stderr, "issue: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, tok)
	return 0
}
