package digest_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashpipe/internal/digest"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// Vectors from RFC 2202, RFC 4231 and the Wikipedia HMAC article.
func TestHMAC_KnownAnswers(t *testing.T) {
	aa80 := bytes.Repeat([]byte{0xaa}, 80)

	cases := []struct {
		name   string
		key    []byte
		data   []byte
		hashes map[string]string
	}{
		{
			name: "empty",
			key:  []byte{},
			data: []byte{},
			hashes: map[string]string{
				"md5":    "74e6f7298a9c2d168935f58c001bad88",
				"sha1":   "fbdb1d1b18aa6c08324b7d64b71fb76370690e1d",
				"sha256": "b613679a0814d9ec772f95d778c35fc5ff1697c493715653c6c712144292c5ad",
			},
		},
		{
			name: "quick brown fox",
			key:  []byte("key"),
			data: []byte("The quick brown fox jumps over the lazy dog"),
			hashes: map[string]string{
				"md5":    "80070713463e7749b90c2dc24911e275",
				"sha1":   "de7c9b85b8b78aa6bc8a7a36f70a90701c9db4d9",
				"sha256": "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8",
			},
		},
		{
			name:   "rfc2202 md5 case 1",
			key:    bytes.Repeat([]byte{0x0b}, 16),
			data:   []byte("Hi There"),
			hashes: map[string]string{"md5": "9294727a3638bb1c13f48ef8158bfc9d"},
		},
		{
			name: "rfc2202 sha1 case 1",
			key:  bytes.Repeat([]byte{0x0b}, 20),
			data: []byte("Hi There"),
			hashes: map[string]string{
				"sha1":   "b617318655057264e28bc0b6fb378c8ef146be00",
				"sha256": "b0344c61d8db38535ca8afceaf0bf12b881dc200c9833da726e9376c2e32cff7",
			},
		},
		{
			name: "rfc2202 case 2",
			key:  []byte("Jefe"),
			data: []byte("what do ya want for nothing?"),
			hashes: map[string]string{
				"md5":    "750c783e6ab0b503eaa86e310a5db738",
				"sha1":   "effcdf6ae5eb2fa2d27416d5f184df9c259a7c79",
				"sha256": "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843",
			},
		},
		{
			name:   "rfc2202 md5 case 3",
			key:    bytes.Repeat([]byte{0xaa}, 16),
			data:   bytes.Repeat([]byte{0xdd}, 50),
			hashes: map[string]string{"md5": "56be34521d144c88dbb8c733f0e8b3f6"},
		},
		{
			name:   "rfc2202 sha1 case 3",
			key:    bytes.Repeat([]byte{0xaa}, 20),
			data:   bytes.Repeat([]byte{0xdd}, 50),
			hashes: map[string]string{"sha1": "125d7342b9ac11cd91a39af48aa17b4f63f175d3"},
		},
		{
			name: "rfc2202 case 4",
			key:  mustHex(t, "0102030405060708090a0b0c0d0e0f10111213141516171819"),
			data: bytes.Repeat([]byte{0xcd}, 50),
			hashes: map[string]string{
				"md5":  "697eaf0aca3a3aea3a75164746ffaa79",
				"sha1": "4c9007f4026250c6bc8414f9bf50c86c2d7235da",
			},
		},
		{
			name:   "rfc2202 md5 case 5",
			key:    bytes.Repeat([]byte{0x0c}, 16),
			data:   []byte("Test With Truncation"),
			hashes: map[string]string{"md5": "56461ef2342edc00f9bab995690efd4c"},
		},
		{
			name:   "rfc2202 sha1 case 5",
			key:    bytes.Repeat([]byte{0x0c}, 20),
			data:   []byte("Test With Truncation"),
			hashes: map[string]string{"sha1": "4c1a03424b55e07fe7f27be1d58bb9324a9a5a04"},
		},
		{
			name: "key longer than block size",
			key:  aa80,
			data: []byte("Test Using Larger Than Block-Size Key - Hash Key First"),
			hashes: map[string]string{
				"md5":  "6b1ab7fe4bd7bf8f0b62e6ce61b9d0cd",
				"sha1": "aa4ae5e15272d00e95705637ce8a3b55ed402112",
			},
		},
		{
			name: "key and data longer than block size",
			key:  aa80,
			data: []byte("Test Using Larger Than Block-Size Key and Larger Than One Block-Size Data"),
			hashes: map[string]string{
				"md5":  "6f630fad67cda0ee1fb1f562db3aa53e",
				"sha1": "e8e99d0f45237d786d6bbaa7965c7808bbff1a91",
			},
		},
	}

	reg := digest.NewRegistry()
	for _, tc := range cases {
		for algo, want := range tc.hashes {
			t.Run(tc.name+"/"+algo, func(t *testing.T) {
				h, err := digest.NewHMAC(reg, algo, tc.key)
				require.NoError(t, err)

				got, err := h.Digest(tc.data)
				require.NoError(t, err)
				assert.Equal(t, want, hex.EncodeToString(got))
				assert.Len(t, got, h.Size())
			})
		}
	}
}

func TestHMAC_AliasMatchesCanonicalName(t *testing.T) {
	reg := digest.NewRegistry()
	pairs := map[string]string{
		"MD5":        "md5",
		"SHA256":     "sha256",
		"SHA3-256":   "sha3_256",
		"BLAKE2b512": "blake2b",
		"RIPEMD160":  "ripemd160",
	}
	for alias, name := range pairs {
		a, err := digest.NewHMAC(reg, alias, []byte("k"))
		require.NoError(t, err)
		c, err := digest.NewHMAC(reg, name, []byte("k"))
		require.NoError(t, err)

		da, _ := a.Digest([]byte("data"))
		dc, _ := c.Digest([]byte("data"))
		assert.Equal(t, dc, da, "alias %s", alias)
	}
}

func TestHMAC_Sizes(t *testing.T) {
	reg := digest.NewRegistry()
	sizes := map[string]int{
		"md4":        16,
		"md5":        16,
		"sha1":       20,
		"sha224":     28,
		"sha256":     32,
		"sha384":     48,
		"sha512":     64,
		"sha512_224": 28,
		"sha512_256": 32,
		"sha3_224":   28,
		"sha3_256":   32,
		"sha3_384":   48,
		"sha3_512":   64,
		"ripemd160":  20,
		"blake2b":    64,
		"blake2s":    32,
	}
	for name, size := range sizes {
		h, err := digest.NewHMAC(reg, name, nil)
		require.NoError(t, err, name)
		assert.Equal(t, size, h.Size(), name)
		assert.Equal(t, name, h.Algorithm())

		sum, err := h.Digest([]byte("abc"))
		require.NoError(t, err)
		assert.Len(t, sum, size, name)
	}
}

func TestHMAC_MatchesCryptoHMAC(t *testing.T) {
	key := []byte("correlation key")
	h, err := digest.NewHMAC(digest.NewRegistry(), "sha256", key)
	require.NoError(t, err)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("user@example.com"))

	got, err := h.Digest([]byte("user@example.com"))
	require.NoError(t, err)
	assert.Equal(t, mac.Sum(nil), got)
}

func TestHMAC_Deterministic(t *testing.T) {
	h, err := digest.NewHMAC(digest.NewRegistry(), "sha1", []byte("k"))
	require.NoError(t, err)

	first, _ := h.Digest([]byte("same"))
	other, _ := h.Digest([]byte("different"))
	second, _ := h.Digest([]byte("same"))
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
}

func TestHMAC_KeyIsCopied(t *testing.T) {
	key := []byte("key")
	h, err := digest.NewHMAC(digest.NewRegistry(), "md5", key)
	require.NoError(t, err)
	key[0] = 'X'

	got, _ := h.Digest([]byte("The quick brown fox jumps over the lazy dog"))
	assert.Equal(t, "80070713463e7749b90c2dc24911e275", hex.EncodeToString(got))
}

func TestHMAC_ConcurrentDigest(t *testing.T) {
	h, err := digest.NewHMAC(digest.NewRegistry(), "sha256", nil)
	require.NoError(t, err)
	want, _ := h.Digest(nil)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, _ := h.Digest(nil)
				if !bytes.Equal(got, want) {
					errs <- errors.New("digest mismatch under concurrency")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	assert.Equal(t, "b613679a0814d9ec772f95d778c35fc5ff1697c493715653c6c712144292c5ad", hex.EncodeToString(want))
}

func TestNewHMAC_UnsupportedAlgorithm(t *testing.T) {
	_, err := digest.NewHMAC(digest.NewRegistry(), "sha7", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, digest.ErrUnsupportedAlgorithm))
	assert.Contains(t, err.Error(), `"sha7"`)
}

func TestNewHMAC_NamesAreCaseSensitive(t *testing.T) {
	_, err := digest.NewHMAC(digest.NewRegistry(), "Sha256", nil)
	assert.ErrorIs(t, err, digest.ErrUnsupportedAlgorithm)
}
