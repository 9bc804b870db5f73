package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSelfSigned(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
		IsCA:         true,
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

func TestLoadServerTLS(t *testing.T) {
	tmpDir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, tmpDir)

	cfg, err := LoadServerTLS(&ServerTLSConfig{CertFile: certFile, KeyFile: keyFile})
	if err != nil {
		t.Fatalf("LoadServerTLS failed: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("expected 1 certificate, got %d", len(cfg.Certificates))
	}
	if cfg.ClientAuth != tls.NoClientCert {
		t.Errorf("client auth should be off without a CA, got %v", cfg.ClientAuth)
	}
}

func TestLoadServerTLS_ClientCA(t *testing.T) {
	tmpDir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, tmpDir)

	cfg, err := LoadServerTLS(&ServerTLSConfig{CertFile: certFile, KeyFile: keyFile, ClientCAFile: certFile})
	if err != nil {
		t.Fatalf("LoadServerTLS failed: %v", err)
	}
	if cfg.ClientAuth != tls.RequireAndVerifyClientCert {
		t.Errorf("expected RequireAndVerifyClientCert, got %v", cfg.ClientAuth)
	}
}

func TestLoadServerTLS_MissingCert(t *testing.T) {
	_, err := LoadServerTLS(&ServerTLSConfig{
		CertFile: "/nonexistent/server.crt",
		KeyFile:  "/nonexistent/server.key",
	})
	if err == nil {
		t.Error("expected error for missing certificate")
	}
}

func TestServerTLSConfig_Enabled(t *testing.T) {
	var nilCfg *ServerTLSConfig
	if nilCfg.Enabled() {
		t.Error("nil config should not be enabled")
	}
	if (&ServerTLSConfig{CertFile: "a"}).Enabled() {
		t.Error("config without key should not be enabled")
	}
	if !(&ServerTLSConfig{CertFile: "a", KeyFile: "b"}).Enabled() {
		t.Error("config with cert and key should be enabled")
	}
}
