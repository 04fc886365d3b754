// Package digest provides keyed message digests (HMAC) over a named set of
// hash algorithms.
//
// A [Registry] maps algorithm names to hash constructors. It is built
// explicitly with [NewRegistry] and handed to [NewHMAC] and to whatever
// needs the list of usable names; there is no package-level registry.
//
//	reg := digest.NewRegistry()
//	h, err := digest.NewHMAC(reg, "sha256", key)
//	if err != nil { ... }
//	sum, _ := h.Digest([]byte("data"))
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/md4"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = "sha1"

// Registry is a name to hash constructor table. It is safe for concurrent
// use.
type Registry struct {
	mu    sync.RWMutex
	algos map[string]func() hash.Hash
}

// NewRegistry returns a Registry holding the standard library digests, the
// golang.org/x/crypto digests, and their OpenSSL style aliases.
func NewRegistry() *Registry {
	r := &Registry{algos: make(map[string]func() hash.Hash)}
	for _, a := range builtin {
		_ = r.Register(a.name, a.fn)
		for _, alias := range a.aliases {
			_ = r.Register(alias, a.fn)
		}
	}
	return r
}

type builtinAlgorithm struct {
	name    string
	aliases []string
	fn      func() hash.Hash
}

var builtin = []builtinAlgorithm{
	{"md4", []string{"MD4"}, md4.New},
	{"md5", []string{"MD5"}, md5.New},
	{"sha1", []string{"SHA1"}, sha1.New},
	{"sha224", []string{"SHA224"}, sha256.New224},
	{"sha256", []string{"SHA256"}, sha256.New},
	{"sha384", []string{"SHA384"}, sha512.New384},
	{"sha512", []string{"SHA512"}, sha512.New},
	{"sha512_224", []string{"SHA512-224"}, sha512.New512_224},
	{"sha512_256", []string{"SHA512-256"}, sha512.New512_256},
	{"sha3_224", []string{"SHA3-224"}, func() hash.Hash { return sha3.New224() }},
	{"sha3_256", []string{"SHA3-256"}, func() hash.Hash { return sha3.New256() }},
	{"sha3_384", []string{"SHA3-384"}, func() hash.Hash { return sha3.New384() }},
	{"sha3_512", []string{"SHA3-512"}, func() hash.Hash { return sha3.New512() }},
	{"ripemd160", []string{"RIPEMD160"}, ripemd160.New},
	{"blake2b", []string{"BLAKE2b512"}, newBlake2b},
	{"blake2s", []string{"BLAKE2s256"}, newBlake2s},
}

// Unkeyed BLAKE2 constructors only fail on oversized keys.
func newBlake2b() hash.Hash {
	h, err := blake2b.New512(nil)
	if err != nil {
		panic(err)
	}
	return h
}

func newBlake2s() hash.Hash {
	h, err := blake2s.New256(nil)
	if err != nil {
		panic(err)
	}
	return h
}

// Register adds or replaces the constructor for name.
func (r *Registry) Register(name string, fn func() hash.Hash) error {
	if name == "" {
		return ErrEmptyAlgorithmName
	}
	if fn == nil {
		return ErrNilConstructor
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.algos[name] = fn
	return nil
}

// Lookup returns the constructor registered under name. Names are case
// sensitive.
func (r *Registry) Lookup(name string) (func() hash.Hash, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.algos[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
	return fn, nil
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.algos))
	for name := range r.algos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Available returns the names worth suggesting to a user. Names containing
// "with" denote combined constructions and are skipped. When a name has an
// all-lowercase spelling registered as well, only the lowercase one is
// kept.
func (r *Registry) Available() []string {
	seen := make(map[string]bool)
	var mixed []string
	for _, name := range r.Names() {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "with") {
			continue
		}
		if lower != name {
			mixed = append(mixed, name)
			continue
		}
		seen[lower] = true
	}
	for _, name := range mixed {
		if !seen[strings.ToLower(name)] {
			seen[name] = true
		}
	}

	avail := make([]string, 0, len(seen))
	for name := range seen {
		avail = append(avail, name)
	}
	sort.Slice(avail, func(i, j int) bool {
		li, lj := strings.ToLower(avail[i]), strings.ToLower(avail[j])
		if li != lj {
			return li < lj
		}
		return avail[i] < avail[j]
	})
	return avail
}
