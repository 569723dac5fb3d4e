// Copyright © 2018 One Concern

package content

import (
	"context"
	"crypto/md5"  //nolint:gosec
	"crypto/sha1" //nolint:gosec
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"

	blake2b "github.com/minio/blake2b-simd"
	"github.com/oneconcern/timestream/pkg/errors"
	"github.com/zeebo/blake3"
)

// Algorithm of a content digest
type Algorithm string

// Supported digests
const (
	MD5     Algorithm = "md5"
	SHA1    Algorithm = "sha1"
	SHA256  Algorithm = "sha256"
	Blake2b Algorithm = "blake2b"
	Blake3  Algorithm = "blake3"
)

// ErrUnknownAlgorithm is returned for an unsupported digest algorithm
var ErrUnknownAlgorithm = errors.New("unknown checksum algorithm")

// Algorithms lists the supported digests
func Algorithms() []Algorithm {
	return []Algorithm{MD5, SHA1, SHA256, Blake2b, Blake3}
}

// ParseAlgorithm parses the name of a digest algorithm
func ParseAlgorithm(name string) (Algorithm, error) {
	for _, alg := range Algorithms() {
		if strings.EqualFold(name, string(alg)) {
			return alg, nil
		}
	}
	return "", ErrUnknownAlgorithm.Wrapf("%q", name)
}

// New hasher for this algorithm
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil //nolint:gosec
	case SHA1:
		return sha1.New(), nil //nolint:gosec
	case SHA256:
		return sha256.New(), nil
	case Blake2b:
		return blake2b.New256(), nil
	case Blake3:
		return blake3.New(), nil
	default:
		return nil, ErrUnknownAlgorithm.Wrapf("%q", string(a))
	}
}

// Checksum returns the hex digest of the content, fetching it if needed
func (h *Handle) Checksum(ctx context.Context, alg Algorithm) (string, error) {
	hasher, err := alg.New()
	if err != nil {
		return "", err
	}
	data, err := h.Fetch(ctx)
	if err != nil {
		return "", err
	}
	_, _ = hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
