package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"fmt"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/cuemby/ozone/pkg/storage"
)

const (
	rootCAValidity   = 10 * 365 * 24 * time.Hour
	nodeCertValidity = 90 * 24 * time.Hour

	// The root key signs for a decade; leaf keys are reissued every
	// 90 days and can be smaller.
	rootKeySize = 4096
	nodeKeySize = 2048
)

// CertAuthority is the cluster's certificate authority. The first SCM
// node generates the root; every identity in the cluster (SCM, KSM,
// datanode, CLI) is a leaf signed by it.
type CertAuthority struct {
	rootCert  *x509.Certificate
	rootKey   *rsa.PrivateKey
	store     storage.Store
	certCache map[string]*CachedCert
	mu        sync.RWMutex
}

// CachedCert is an issued leaf kept in memory so a reconnecting node
// does not force a re-sign.
type CachedCert struct {
	Cert      *x509.Certificate
	Key       *rsa.PrivateKey
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// CAData is the persisted form of the root cert and key.
type CAData struct {
	RootCertDER []byte
	RootKeyDER  []byte
}

// caStoreKey is the single MetadataStore key the root CA is persisted
// under, in the system namespace reserved away from SCM/KSM domain
// keys.
var caStoreKey = []byte("/system/ca")

// NewCertAuthority creates a CA backed by the given store. Call
// Initialize or LoadFromStore before issuing.
func NewCertAuthority(store storage.Store) *CertAuthority {
	return &CertAuthority{
		store:     store,
		certCache: make(map[string]*CachedCert),
	}
}

// Initialize generates a fresh self-signed root.
func (ca *CertAuthority) Initialize() error {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	rootKey, err := rsa.GenerateKey(rand.Reader, rootKeySize)
	if err != nil {
		return fmt.Errorf("failed to generate root key: %w", err)
	}

	serial, err := newSerial()
	if err != nil {
		return err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"Ozone Cluster"},
			CommonName:   "Ozone Root CA",
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(rootCAValidity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		IsCA:                  true,
		BasicConstraintsValid: true,
		MaxPathLen:            1,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &rootKey.PublicKey, rootKey)
	if err != nil {
		return fmt.Errorf("failed to create root certificate: %w", err)
	}
	rootCert, err := x509.ParseCertificate(der)
	if err != nil {
		return fmt.Errorf("failed to parse root certificate: %w", err)
	}

	ca.rootCert = rootCert
	ca.rootKey = rootKey
	return nil
}

// LoadFromStore loads the CA from the MetadataStore.
func (ca *CertAuthority) LoadFromStore() error {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	raw, err := ca.store.Get(caStoreKey)
	if err != nil {
		return fmt.Errorf("failed to get CA from storage: %w", err)
	}

	var data CAData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to unmarshal CA data: %w", err)
	}

	rootCert, err := x509.ParseCertificate(data.RootCertDER)
	if err != nil {
		return fmt.Errorf("failed to parse root certificate: %w", err)
	}
	rootKey, err := x509.ParsePKCS1PrivateKey(data.RootKeyDER)
	if err != nil {
		return fmt.Errorf("failed to parse root key: %w", err)
	}

	ca.rootCert = rootCert
	ca.rootKey = rootKey
	return nil
}

// SaveToStore persists the CA to the MetadataStore.
func (ca *CertAuthority) SaveToStore() error {
	ca.mu.RLock()
	defer ca.mu.RUnlock()

	if ca.rootCert == nil || ca.rootKey == nil {
		return fmt.Errorf("CA not initialized")
	}

	raw, err := json.Marshal(CAData{
		RootCertDER: ca.rootCert.Raw,
		RootKeyDER:  x509.MarshalPKCS1PrivateKey(ca.rootKey),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal CA data: %w", err)
	}

	if err := ca.store.Put(caStoreKey, raw); err != nil {
		return fmt.Errorf("failed to save CA to storage: %w", err)
	}
	return nil
}

// IssueNodeCertificate issues a leaf for an SCM, KSM, or datanode
// identity. Node certs carry both ClientAuth and ServerAuth because
// every role both dials peers and serves RPC over the same identity.
func (ca *CertAuthority) IssueNodeCertificate(nodeID, role string, dnsNames []string, ipAddresses []net.IP) (*tls.Certificate, error) {
	return ca.issue(nodeID, role+"-"+nodeID,
		[]x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		dnsNames, ipAddresses)
}

// IssueClientCertificate issues a client-only leaf for the ozone CLI.
func (ca *CertAuthority) IssueClientCertificate(clientID string) (*tls.Certificate, error) {
	return ca.issue(clientID, "cli-"+clientID,
		[]x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}, nil, nil)
}

func (ca *CertAuthority) issue(cacheID, commonName string, extUsage []x509.ExtKeyUsage, dnsNames []string, ips []net.IP) (*tls.Certificate, error) {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	if ca.rootCert == nil || ca.rootKey == nil {
		return nil, fmt.Errorf("CA not initialized")
	}

	leafKey, err := rsa.GenerateKey(rand.Reader, nodeKeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	serial, err := newSerial()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"Ozone Cluster"},
			CommonName:   commonName,
		},
		NotBefore:   time.Now(),
		NotAfter:    time.Now().Add(nodeCertValidity),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: extUsage,
		DNSNames:    dnsNames,
		IPAddresses: ips,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, ca.rootCert, &leafKey.PublicKey, ca.rootKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	ca.certCache[cacheID] = &CachedCert{
		Cert:      leaf,
		Key:       leafKey,
		IssuedAt:  leaf.NotBefore,
		ExpiresAt: leaf.NotAfter,
	}

	return &tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  leafKey,
		Leaf:        leaf,
	}, nil
}

// VerifyCertificate verifies a leaf against the root.
func (ca *CertAuthority) VerifyCertificate(cert *x509.Certificate) error {
	ca.mu.RLock()
	defer ca.mu.RUnlock()

	if ca.rootCert == nil {
		return fmt.Errorf("CA not initialized")
	}
	return ValidateCertChain(cert, ca.rootCert)
}

// GetRootCACert returns the root certificate in DER form, or nil if
// the CA is not initialized.
func (ca *CertAuthority) GetRootCACert() []byte {
	ca.mu.RLock()
	defer ca.mu.RUnlock()

	if ca.rootCert == nil {
		return nil
	}
	return ca.rootCert.Raw
}

// IsInitialized reports whether the CA holds a usable root.
func (ca *CertAuthority) IsInitialized() bool {
	ca.mu.RLock()
	defer ca.mu.RUnlock()
	return ca.rootCert != nil && ca.rootKey != nil
}

// GetCachedCert returns the cached leaf for an identity, if present.
func (ca *CertAuthority) GetCachedCert(id string) (*CachedCert, bool) {
	ca.mu.RLock()
	defer ca.mu.RUnlock()
	cert, ok := ca.certCache[id]
	return cert, ok
}

func newSerial() (*big.Int, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}
	return serial, nil
}
