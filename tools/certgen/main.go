// Package main generates a development CA plus server and client
// certificates for running the stub endpoint over HTTPS.
//
// The stub is then started with -tls-cert/-tls-key and the client
// with -ca (and optionally -cert/-key).
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/formrelay/internal/certgen"
)

const validFor = 365 * 24 * time.Hour

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma separated server hostnames and IPs")
	clientCN := flag.String("client-cn", "formrelay-client", "client certificate common name")
	flag.Parse()

	if err := generate(*dir, strings.Split(*hosts, ","), *clientCN); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Certificates generated into %s\n", *dir)
}

// generate writes ca.crt/ca.key, server.crt/server.key and client.crt/client.key into dir.
func generate(dir string, hosts []string, clientCN string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	ca, err := certgen.NewAuthority("FormRelay Dev CA", 10*validFor)
	if err != nil {
		return err
	}
	caKey, err := ca.KeyPEM()
	if err != nil {
		return err
	}
	if err := writePair(dir, "ca", ca.CertPEM(), caKey); err != nil {
		return err
	}

	var names []string
	for _, h := range hosts {
		if h = strings.TrimSpace(h); h != "" {
			names = append(names, h)
		}
	}
	cn := "localhost"
	if len(names) > 0 {
		cn = names[0]
	}
	certPEM, keyPEM, err := ca.Issue(cn, names, certgen.UsageServer, validFor)
	if err != nil {
		return err
	}
	if err := writePair(dir, "server", certPEM, keyPEM); err != nil {
		return err
	}

	certPEM, keyPEM, err = ca.Issue(clientCN, nil, certgen.UsageClient, validFor)
	if err != nil {
		return err
	}
	return writePair(dir, "client", certPEM, keyPEM)
}

func writePair(dir, name string, certPEM, keyPEM []byte) error {
	if err := os.WriteFile(filepath.Join(dir, name+".crt"), certPEM, 0o644); err != nil {
		return fmt.Errorf("write %s cert: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".key"), keyPEM, 0o600); err != nil {
		return fmt.Errorf("write %s key: %w", name, err)
	}
	return nil
}
