package utils

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
)

// Digests holds every checksum the Debian/RPM renderers need over a single
// buffer, computed in one pass.
type Digests struct {
	MD5    string
	SHA1   string
	SHA256 string
	SHA512 string
	Size   int
}

// CalculateDigests streams data through md5/sha1/sha256/sha512 simultaneously.
func CalculateDigests(data []byte) Digests {
	md5Hash := md5.New()
	sha1Hash := sha1.New()
	sha256Hash := sha256.New()
	sha512Hash := sha512.New()

	w := io.MultiWriter(md5Hash, sha1Hash, sha256Hash, sha512Hash)
	_, _ = w.Write(data)

	return Digests{
		MD5:    hex.EncodeToString(md5Hash.Sum(nil)),
		SHA1:   hex.EncodeToString(sha1Hash.Sum(nil)),
		SHA256: hex.EncodeToString(sha256Hash.Sum(nil)),
		SHA512: hex.EncodeToString(sha512Hash.Sum(nil)),
		Size:   len(data),
	}
}

// Hashsum computes a single named digest, mirroring the generic
// `hashsum<T: Digest>` helper of the original source.
func Hashsum(data []byte, h hash.Hash) string {
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func SHA256Hex(data []byte) string {
	return Hashsum(data, sha256.New())
}
