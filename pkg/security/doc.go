/*
Package security provides the mTLS trust fabric for an Ozone cluster:
a Certificate Authority and file-based certificate lifecycle helpers.

# Certificate Authority

The CA is a self-signed root (RSA 4096-bit, 10-year validity) generated
once by the first SCM node and persisted through the MetadataStore so
every other node in the cluster loads the same root on join:

	Root CA (self-signed)
	├── 10-year validity
	├── RSA 4096-bit key
	└── Subject: CN=Ozone Root CA, O=Ozone Cluster

It issues short-lived identities for every node and client role:

	Node Certificate                  Client Certificate
	├── 90-day validity                ├── 90-day validity
	├── RSA 2048-bit key                ├── RSA 2048-bit key
	├── KeyUsage: sign+encipher         ├── KeyUsage: sign+encipher
	├── ExtKeyUsage: client+server      ├── ExtKeyUsage: client only
	└── CN={role}-{id}                  └── CN=cli-{id}

Node certificates carry both ClientAuth and ServerAuth because SCM and
KSM peers dial each other as both client and server over the same
identity. Issued certificates are cached in memory by node/client ID to
avoid re-signing on every reconnect.

# Certificate files on disk

SaveCertToFile/LoadCertFromFile and SaveCACertToFile/LoadCACertFromFile
read and write PEM-encoded cert/key pairs under a per-role directory
(GetCertDir, GetCLICertDir), so a restarted process picks its identity
back up without re-requesting one. CertNeedsRotation flags a
certificate once fewer than 30 days remain.

# Non-goals

This package does not encrypt data at rest beyond the CA's own private
key; object data stored by containers is not encrypted by Ozone.
*/
package security
