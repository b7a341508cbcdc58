package submit

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// helper: generate a self-signed CA cert and key
func generateCACert(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	certTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test CA"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, certTmpl, certTmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM
}

func TestNewHTTPClient_Defaults(t *testing.T) {
	client, err := NewHTTPClient(TransportOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v; want %v", client.Timeout, DefaultTimeout)
	}
	tr, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport type = %T", client.Transport)
	}
	if tr.TLSClientConfig.RootCAs != nil {
		t.Error("expected system roots when no CA file is given")
	}
}

func TestNewHTTPClient_ReadCAError(t *testing.T) {
	_, err := NewHTTPClient(TransportOptions{CAFile: "nonexistent.pem"})
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected file not exist error, got %v", err)
	}
}

func TestNewHTTPClient_InvalidCA(t *testing.T) {
	caPath := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(caPath, []byte("invalid pem"), 0600); err != nil {
		t.Fatalf("failed to write CA file: %v", err)
	}
	_, err := NewHTTPClient(TransportOptions{CAFile: caPath})
	if err == nil || !strings.Contains(err.Error(), "failed to parse CA cert") {
		t.Errorf("expected parse CA error, got %v", err)
	}
}

func TestNewHTTPClient_WithCAAndCertificate(t *testing.T) {
	tmp := t.TempDir()
	certPEM, keyPEM := generateCACert(t)
	certPath := filepath.Join(tmp, "client.crt")
	keyPath := filepath.Join(tmp, "client.key")
	if err := os.WriteFile(certPath, certPEM, 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		t.Fatal(err)
	}

	client, err := NewHTTPClient(TransportOptions{
		Timeout:  3 * time.Second,
		CAFile:   certPath,
		CertFile: certPath,
		KeyFile:  keyPath,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Timeout != 3*time.Second {
		t.Errorf("timeout = %v; want 3s", client.Timeout)
	}
	tr := client.Transport.(*http.Transport)
	if tr.TLSClientConfig.RootCAs == nil {
		t.Error("expected custom root pool")
	}
	if len(tr.TLSClientConfig.Certificates) != 1 {
		t.Errorf("certificates = %d; want 1", len(tr.TLSClientConfig.Certificates))
	}
}

func TestNewHTTPClient_BadKeyPair(t *testing.T) {
	_, err := NewHTTPClient(TransportOptions{CertFile: "missing.crt", KeyFile: "missing.key"})
	if err == nil || !strings.Contains(err.Error(), "failed to load client cert/key") {
		t.Errorf("expected key pair error, got %v", err)
	}
}
