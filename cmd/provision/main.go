// Command provision adds an account to the catalog out of band and prints
// its API key. Run it on the host that owns the catalog file while the API
// server is stopped.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/minicloud/service/internal/auth"
	"github.com/minicloud/service/internal/catalog"
)

func main() {
	catalogPath := flag.String("catalog", "data/catalog.json", "path to the catalog snapshot file")
	username := flag.String("username", "", "username for the new account")
	credential := flag.String("credential", "", "credential for the new account")
	flag.Parse()

	if *username == "" || *credential == "" {
		log.Fatal("both -username and -credential are required")
	}

	store, err := catalog.Open(*catalogPath)
	if err != nil {
		log.Fatalf("catalog open failed: %v", err)
	}

	svc := auth.NewService(store, "")
	u, err := svc.Provision(*username, *credential)
	if err != nil {
		log.Fatalf("provision failed: %v", err)
	}

	fmt.Printf("provisioned user %q (id %d)\napi key: %s\n", u.Username, u.ID, u.APIKey)
}
