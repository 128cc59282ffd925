package signer

import (
	"bytes"
	"crypto"
	"fmt"
	"io"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

const signingIdentity = "PackHub <sign@packhub.dev>"

// GPGSigner signs repository metadata with a single OpenPGP entity, using
// go-crypto end to end instead of shelling out to a gpg binary.
type GPGSigner struct {
	entity *openpgp.Entity
}

// GenerateSigner creates a fresh RSA signing entity, used on first boot
// when no persisted key is configured.
func GenerateSigner() (*GPGSigner, error) {
	entity, err := openpgp.NewEntity(signingIdentity, "", "", &packet.Config{
		DefaultHash: crypto.SHA512,
	})
	if err != nil {
		return nil, fmt.Errorf("generating signing key: %w", err)
	}
	return &GPGSigner{entity: entity}, nil
}

// LoadSigner parses an armored private key previously exported by
// GenerateSigner and persisted to the metadata store.
func LoadSigner(armoredPrivateKey []byte, passphrase string) (*GPGSigner, error) {
	entityList, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(armoredPrivateKey))
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	if len(entityList) == 0 {
		return nil, fmt.Errorf("no keys found in private key material")
	}
	entity := entityList[0]

	if passphrase != "" && entity.PrivateKey != nil && entity.PrivateKey.Encrypted {
		if err := entity.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
			return nil, fmt.Errorf("decrypting private key: %w", err)
		}
	}

	return &GPGSigner{entity: entity}, nil
}

// ArmoredPrivateKey serializes the entity's private key for persistence in
// the metadata store, so a restart doesn't mint a new key.
func (s *GPGSigner) ArmoredPrivateKey() ([]byte, error) {
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	if err != nil {
		return nil, err
	}
	if err := s.entity.SerializePrivate(w, nil); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SignCleartext produces the PGP cleartext signature InRelease needs.
func (s *GPGSigner) SignCleartext(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := clearsign.Encode(&buf, s.entity.PrivateKey, &packet.Config{DefaultHash: crypto.SHA512})
	if err != nil {
		return nil, fmt.Errorf("opening cleartext signature: %w", err)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return nil, fmt.Errorf("writing cleartext message: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing cleartext signature: %w", err)
	}
	return buf.Bytes(), nil
}

// SignDetached produces Release.gpg / repomd.xml.asc.
func (s *GPGSigner) SignDetached(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	err := openpgp.ArmoredDetachSign(&buf, s.entity, bytes.NewReader(data), &packet.Config{
		DefaultHash: crypto.SHA512,
	})
	if err != nil {
		return nil, fmt.Errorf("creating detached signature: %w", err)
	}
	return buf.Bytes(), nil
}

// ArmoredPublicKey exports the public half in ASCII-armored form, the
// format apt-key/rpm --import and interactive users expect.
func (s *GPGSigner) ArmoredPublicKey() ([]byte, error) {
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return nil, err
	}
	if err := s.entity.Serialize(w); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DearmoredPublicKey exports the public half as a raw OpenPGP packet
// stream, for clients that want the binary keyring form directly.
func (s *GPGSigner) DearmoredPublicKey() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.entity.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
