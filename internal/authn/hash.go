// Package authn implements the login authentication pipeline:
// a configured stack of Authenticators whose first entry answers each
// request, plus the
// compatibility-critical legacy password digest.
package authn

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
	"sync"

	"github.com/ssvr/zoneserver/internal/config"
)

const (
	nameBufSize     = 24 // name, zero-padded, truncated to 23 chars
	passwordBufSize = 32 // password, null-terminated, truncated to 31 chars
	digestBufSize   = nameBufSize + passwordBufSize
)

// hashMu serialises digest computation: the legacy digest routine this
// mirrors is not reentrant-safe, and logins are rare enough that
// contention here is never a bottleneck.
var hashMu sync.Mutex

// Digest computes the legacy-compatible login password digest.
//
// name is lower-cased and placed in a 24-byte buffer (zero-padded,
// truncated to 23 characters); password is placed in a 32-byte buffer
// (null-terminated, truncated to 31 characters); the 56-byte
// concatenation is hashed with algo and the result encoded with enc.
// This exact byte layout is compatibility-critical with the legacy
// server and must not be "improved".
func Digest(name, password string, algo config.HashAlgorithm, enc config.HashEncoding) (string, error) {
	hashMu.Lock()
	defer hashMu.Unlock()

	var buf [digestBufSize]byte

	lower := strings.ToLower(name)
	if len(lower) > nameBufSize-1 {
		lower = lower[:nameBufSize-1]
	}
	copy(buf[:nameBufSize], lower)

	pw := password
	if len(pw) > passwordBufSize-1 {
		pw = pw[:passwordBufSize-1]
	}
	copy(buf[nameBufSize:], pw)
	// Remaining bytes in both sub-buffers are already zero (null pad).

	var h hash.Hash
	switch algo {
	case config.HashMD5, "":
		h = md5.New()
	case config.HashSHA256:
		h = sha256.New()
	case config.HashSHA512:
		h = sha512.New()
	default:
		return "", fmt.Errorf("unknown hash algorithm %q", algo)
	}
	h.Write(buf[:])
	sum := h.Sum(nil)

	switch enc {
	case config.EncodingBase64:
		return base64.StdEncoding.EncodeToString(sum), nil
	case config.EncodingHex, "":
		return hex.EncodeToString(sum), nil
	default:
		return "", fmt.Errorf("unknown hash encoding %q", enc)
	}
}

// EncodedHashLength returns the length of the encoded digest for algo+enc,
// used by the hash round-trip test property.
func EncodedHashLength(algo config.HashAlgorithm, enc config.HashEncoding) (int, error) {
	var rawLen int
	switch algo {
	case config.HashMD5, "":
		rawLen = md5.Size
	case config.HashSHA256:
		rawLen = sha256.Size
	case config.HashSHA512:
		rawLen = sha512.Size
	default:
		return 0, fmt.Errorf("unknown hash algorithm %q", algo)
	}

	switch enc {
	case config.EncodingHex, "":
		return rawLen * 2, nil
	case config.EncodingBase64:
		return base64.StdEncoding.EncodedLen(rawLen), nil
	default:
		return 0, fmt.Errorf("unknown hash encoding %q", enc)
	}
}
