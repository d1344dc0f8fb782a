package security

import (
	"crypto/x509"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ozone/pkg/storage"
)

func newTestCA(t *testing.T) *CertAuthority {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "ca.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ca := NewCertAuthority(store)
	require.NoError(t, ca.Initialize())
	return ca
}

func TestSaveLoadCertToFile(t *testing.T) {
	ca := newTestCA(t)
	certDir := t.TempDir()

	cert, err := ca.IssueNodeCertificate("test-dn", "datanode", []string{}, []net.IP{})
	require.NoError(t, err)

	require.NoError(t, SaveCertToFile(cert, certDir))
	assert.FileExists(t, filepath.Join(certDir, "node.crt"))
	assert.FileExists(t, filepath.Join(certDir, "node.key"))

	loadedCert, err := LoadCertFromFile(certDir)
	require.NoError(t, err)
	assert.Equal(t, cert.Leaf.Subject.CommonName, loadedCert.Leaf.Subject.CommonName)
}

func TestSaveLoadCACertToFile(t *testing.T) {
	ca := newTestCA(t)
	certDir := t.TempDir()

	caCertDER := ca.GetRootCACert()
	require.NoError(t, SaveCACertToFile(caCertDER, certDir))
	assert.FileExists(t, filepath.Join(certDir, "ca.crt"))

	loadedCACert, err := LoadCACertFromFile(certDir)
	require.NoError(t, err)
	assert.True(t, loadedCACert.Equal(ca.rootCert))
}

func TestCertExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, CertExists(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "node.crt"), []byte("cert"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node.key"), []byte("key"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ca.crt"), []byte("ca"), 0600))
	assert.True(t, CertExists(dir))

	require.NoError(t, os.Remove(filepath.Join(dir, "node.key")))
	assert.False(t, CertExists(dir))
}

func TestCertNeedsRotation(t *testing.T) {
	tests := []struct {
		name     string
		notAfter time.Time
		needsRot bool
	}{
		{"expiring in 1 day", time.Now().Add(24 * time.Hour), true},
		{"expiring in 29 days", time.Now().Add(29 * 24 * time.Hour), true},
		{"expiring in 31 days", time.Now().Add(31 * 24 * time.Hour), false},
		{"expiring in 60 days", time.Now().Add(60 * 24 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert := &x509.Certificate{NotAfter: tt.notAfter}
			assert.Equal(t, tt.needsRot, CertNeedsRotation(cert))
		})
	}
	assert.True(t, CertNeedsRotation(nil))
}

func TestValidateCertChain(t *testing.T) {
	ca := newTestCA(t)
	cert, err := ca.IssueNodeCertificate("test-dn", "datanode", []string{}, []net.IP{})
	require.NoError(t, err)

	assert.NoError(t, ValidateCertChain(cert.Leaf, ca.rootCert))
	assert.Error(t, ValidateCertChain(nil, ca.rootCert))
	assert.Error(t, ValidateCertChain(cert.Leaf, nil))
}

func TestGetCertDir(t *testing.T) {
	tests := []struct {
		role   string
		nodeID string
	}{
		{RoleSCM, "node1"},
		{RoleKSM, "node2"},
		{RoleDatanode, "dn-uuid-3"},
	}
	for _, tt := range tests {
		t.Run(tt.role+"-"+tt.nodeID, func(t *testing.T) {
			certDir, err := GetCertDir(tt.role, tt.nodeID)
			require.NoError(t, err)
			assert.Equal(t, tt.role+"-"+tt.nodeID, filepath.Base(certDir))
		})
	}
}

func TestGetCLICertDir(t *testing.T) {
	certDir, err := GetCLICertDir()
	require.NoError(t, err)
	assert.Equal(t, "cli", filepath.Base(certDir))
}
