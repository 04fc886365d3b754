package digest

import (
	"crypto/hmac"
	"hash"
	"sync"
)

// Hasher computes a keyed digest of arbitrary bytes.
type Hasher interface {
	// Digest returns the raw (not hex encoded) digest of data.
	Digest(data []byte) ([]byte, error)
	// Size is the length in bytes of every digest returned by Digest.
	Size() int
}

// HMAC is a [Hasher] using the RFC 2104 construction over a registered
// hash algorithm. Keys longer than the hash block size are hashed first and
// shorter keys are zero padded, as crypto/hmac does.
//
// An HMAC is safe for concurrent use. Each Digest call borrows its own MAC
// state from a pool.
type HMAC struct {
	algorithm string
	size      int
	pool      sync.Pool
}

// NewHMAC returns an HMAC keyed with key over the named algorithm. Unknown
// names fail here with [ErrUnsupportedAlgorithm] rather than on first use.
func NewHMAC(reg *Registry, algorithm string, key []byte) (*HMAC, error) {
	fn, err := reg.Lookup(algorithm)
	if err != nil {
		return nil, err
	}
	key = append([]byte(nil), key...)

	h := &HMAC{algorithm: algorithm}
	h.pool.New = func() any {
		return hmac.New(fn, key)
	}
	mac := h.pool.Get().(hash.Hash)
	h.size = mac.Size()
	h.pool.Put(mac)
	return h, nil
}

// Digest implements Hasher.
func (h *HMAC) Digest(data []byte) ([]byte, error) {
	mac := h.pool.Get().(hash.Hash)
	defer h.pool.Put(mac)

	mac.Reset()
	// hash.Hash writes never fail.
	_, _ = mac.Write(data)
	return mac.Sum(make([]byte, 0, h.size)), nil
}

// Size implements Hasher.
func (h *HMAC) Size() int { return h.size }

// Algorithm returns the name the HMAC was built with.
func (h *HMAC) Algorithm() string { return h.algorithm }

var _ Hasher = (*HMAC)(nil)
