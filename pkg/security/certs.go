package security

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// On-disk layout under ~/.ozone/certs/<role>-<id>/: the node's leaf
// cert and key plus the cluster CA cert it trusts.
const (
	certDirBase = ".ozone/certs"

	nodeCertFile = "node.crt"
	nodeKeyFile  = "node.key"
	caCertFile   = "ca.crt"

	// A cert with less than this left is due for re-issue.
	certRotationThreshold = 30 * 24 * time.Hour
)

// Roles that own a certificate directory. The CLI identity lives in
// its own fixed directory (GetCLICertDir).
const (
	RoleSCM      = "scm"
	RoleKSM      = "ksm"
	RoleDatanode = "datanode"
)

// GetCertDir returns the certificate directory for one role instance,
// e.g. ~/.ozone/certs/datanode-<uuid>.
func GetCertDir(role, nodeID string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, certDirBase, role+"-"+nodeID), nil
}

// GetCLICertDir returns the certificate directory used by the ozone CLI.
func GetCLICertDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, certDirBase, "cli"), nil
}

// SaveCertToFile writes a leaf certificate and its RSA key into certDir.
func SaveCertToFile(cert *tls.Certificate, certDir string) error {
	if err := os.MkdirAll(certDir, 0700); err != nil {
		return fmt.Errorf("failed to create cert directory: %w", err)
	}

	key, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("private key is not RSA")
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Certificate[0]})
	if err := os.WriteFile(filepath.Join(certDir, nodeCertFile), certPEM, 0600); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(filepath.Join(certDir, nodeKeyFile), keyPEM, 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	return nil
}

// LoadCertFromFile reads the leaf cert/key pair from certDir. The
// returned certificate has Leaf populated so callers can inspect the
// identity without re-parsing.
func LoadCertFromFile(certDir string) (*tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(
		filepath.Join(certDir, nodeCertFile),
		filepath.Join(certDir, nodeKeyFile),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	if cert.Leaf == nil {
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		cert.Leaf = leaf
	}
	return &cert, nil
}

// SaveCACertToFile writes the cluster CA certificate (DER) into certDir.
func SaveCACertToFile(caCert []byte, certDir string) error {
	if err := os.MkdirAll(certDir, 0700); err != nil {
		return fmt.Errorf("failed to create cert directory: %w", err)
	}
	caPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caCert})
	if err := os.WriteFile(filepath.Join(certDir, caCertFile), caPEM, 0644); err != nil {
		return fmt.Errorf("failed to write CA certificate: %w", err)
	}
	return nil
}

// LoadCACertFromFile reads the cluster CA certificate from certDir.
func LoadCACertFromFile(certDir string) (*x509.Certificate, error) {
	caPEM, err := os.ReadFile(filepath.Join(certDir, caCertFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	block, _ := pem.Decode(caPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("failed to decode CA certificate PEM")
	}
	caCert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}
	return caCert, nil
}

// CertExists reports whether certDir holds a complete identity: leaf
// cert, key, and the CA cert.
func CertExists(certDir string) bool {
	for _, f := range []string{nodeCertFile, nodeKeyFile, caCertFile} {
		if _, err := os.Stat(filepath.Join(certDir, f)); err != nil {
			return false
		}
	}
	return true
}

// CertNeedsRotation reports whether cert is within the rotation window.
// A nil cert always needs (re-)issue.
func CertNeedsRotation(cert *x509.Certificate) bool {
	if cert == nil {
		return true
	}
	return time.Until(cert.NotAfter) < certRotationThreshold
}

// ValidateCertChain verifies that cert chains to ca.
func ValidateCertChain(cert, ca *x509.Certificate) error {
	if cert == nil {
		return fmt.Errorf("certificate is nil")
	}
	if ca == nil {
		return fmt.Errorf("CA certificate is nil")
	}

	roots := x509.NewCertPool()
	roots.AddCert(ca)

	_, err := cert.Verify(x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
	})
	if err != nil {
		return fmt.Errorf("certificate verification failed: %w", err)
	}
	return nil
}
