package digest

import "errors"

// Sentinel errors returned by the registry and by [NewHMAC].
//
// Use [errors.Is] for comparisons:
//
//	h, err := digest.NewHMAC(reg, "sha7", nil)
//	if errors.Is(err, digest.ErrUnsupportedAlgorithm) {
//	    // unknown name
//	}
var (
	// ErrUnsupportedAlgorithm is returned when a name has no registered
	// digest implementation.
	ErrUnsupportedAlgorithm = errors.New("digest: unsupported algorithm")

	// ErrEmptyAlgorithmName is returned by [Registry.Register] for "".
	ErrEmptyAlgorithmName = errors.New("digest: algorithm name must not be empty")

	// ErrNilConstructor is returned by [Registry.Register] when no hash
	// constructor is supplied.
	ErrNilConstructor = errors.New("digest: hash constructor must not be nil")
)
