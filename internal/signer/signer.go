// Package signer implements OpenPGP signing of repository metadata
// (spec.md §4.9): cleartext signatures for InRelease, detached armored
// signatures for Release.gpg/repomd.xml.asc, and armored/dearmored public
// key export for clients that need to trust the gateway's key.
package signer

// Signer produces the OpenPGP artifacts every rendered repository index
// needs before it can be served.
type Signer interface {
	// SignCleartext wraps data in a PGP cleartext signature (InRelease).
	SignCleartext(data []byte) ([]byte, error)

	// SignDetached produces an ASCII-armored detached signature
	// (Release.gpg, repomd.xml.asc).
	SignDetached(data []byte) ([]byte, error)

	// ArmoredPublicKey returns the signing key in ASCII-armored form.
	ArmoredPublicKey() ([]byte, error)

	// DearmoredPublicKey returns the signing key in raw binary form.
	DearmoredPublicKey() ([]byte, error)
}
