package httpclient

import (
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeCertPEM(t *testing.T, der []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ca.pem")
	block := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(path, block, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigureTLS(t *testing.T) {
	transport, err := ConfigureTLS(nil)
	if err != nil {
		t.Fatalf("ConfigureTLS(nil) error = %v", err)
	}
	if transport.TLSClientConfig.InsecureSkipVerify {
		t.Error("nil config should keep verification on")
	}
	if transport.TLSClientConfig.RootCAs != nil {
		t.Error("nil config should use the system trust store")
	}

	transport, err = ConfigureTLS(&TLSConfig{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("ConfigureTLS() error = %v", err)
	}
	if !transport.TLSClientConfig.InsecureSkipVerify {
		t.Error("InsecureSkipVerify not applied")
	}
}

func TestConfigureTLS_CACertErrors(t *testing.T) {
	if _, err := ConfigureTLS(&TLSConfig{CACertificate: "/nonexistent/ca.pem"}); err == nil {
		t.Error("missing CA file should error")
	}

	path := filepath.Join(t.TempDir(), "garbage.pem")
	if err := os.WriteFile(path, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ConfigureTLS(&TLSConfig{CACertificate: path}); err == nil {
		t.Error("unparseable CA file should error")
	}
}

func TestNewWithTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	caPath := writeCertPEM(t, srv.Certificate().Raw)

	client, err := NewWithTLS(&TLSConfig{CACertificate: caPath})
	if err != nil {
		t.Fatalf("NewWithTLS() error = %v", err)
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() over TLS error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestNewWithTLS_SurfacesConfigError(t *testing.T) {
	if _, err := NewWithTLS(&TLSConfig{CACertificate: "/nonexistent/ca.pem"}); err == nil {
		t.Error("NewWithTLS() with a bad CA path should error")
	}
}
