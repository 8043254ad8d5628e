// Package hasher computes file digests for sumtree. It owns the registry of
// supported algorithms, the textual digest styles, and a chunked hashing loop
// that reports progress and honors cancellation between chunks.
package hasher

import (
	"crypto/hmac"
	"crypto/md5"  //nolint:gosec // MD5SUM manifests are a compatibility format
	"crypto/sha1" //nolint:gosec // SHA1 manifests are a compatibility format
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// ErrUnknownAlgorithm is returned when an algorithm name does not resolve.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// ErrKeyRequired is returned when a keyed algorithm is used without a key.
var ErrKeyRequired = errors.New("hash algorithm requires a secret key")

// Algorithm describes one digest algorithm.
type Algorithm struct {
	// Name is the canonical display name, e.g. "SHA256".
	Name string

	// Bits is the digest size in bits.
	Bits int

	// Keyed reports whether the algorithm needs caller-supplied key material.
	Keyed bool

	aliases []string
	factory func(key []byte) (hash.Hash, error)
}

// IsZero reports whether a is the zero Algorithm.
func (a Algorithm) IsZero() bool {
	return a.Name == ""
}

// HexWidth returns the number of characters of the canonical hex digest.
func (a Algorithm) HexWidth() int {
	return 2 * a.Bits / 8
}

// String returns the canonical name.
func (a Algorithm) String() string {
	return a.Name
}

// New returns a fresh hash.Hash for the algorithm.
func (a Algorithm) New(key []byte) (hash.Hash, error) {
	if a.factory == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, a.Name)
	}
	if a.Keyed && len(key) == 0 {
		return nil, fmt.Errorf("%s: %w", a.Name, ErrKeyRequired)
	}
	return a.factory(key)
}

func plain(fn func() hash.Hash) func([]byte) (hash.Hash, error) {
	return func([]byte) (hash.Hash, error) {
		return fn(), nil
	}
}

func hmacOf(fn func() hash.Hash) func([]byte) (hash.Hash, error) {
	return func(key []byte) (hash.Hash, error) {
		return hmac.New(fn, key), nil
	}
}

var registry = []Algorithm{
	{Name: "MD5", Bits: 128, factory: plain(md5.New)},
	{Name: "SHA1", Bits: 160, factory: plain(sha1.New)},
	{Name: "SHA224", Bits: 224, factory: plain(sha256.New224)},
	{Name: "SHA256", Bits: 256, factory: plain(sha256.New)},
	{Name: "SHA384", Bits: 384, factory: plain(sha512.New384)},
	{Name: "SHA512", Bits: 512, factory: plain(sha512.New)},
	{Name: "CRC32", Bits: 32, aliases: []string{"CRC"}, factory: plain(func() hash.Hash { return crc32.NewIEEE() })},
	{Name: "ADLER32", Bits: 32, factory: plain(func() hash.Hash { return adler32.New() })},
	{
		Name: "BLAKE2b-256", Bits: 256,
		factory: func([]byte) (hash.Hash, error) { return blake2b.New256(nil) },
	},
	{
		Name: "BLAKE2b-512", Bits: 512, aliases: []string{"BLAKE2B", "B2"},
		factory: func([]byte) (hash.Hash, error) { return blake2b.New512(nil) },
	},
	{Name: "XXH64", Bits: 64, aliases: []string{"XXHASH64", "XXHASH"}, factory: plain(func() hash.Hash { return xxhash.New() })},
	{Name: "XXH3", Bits: 64, aliases: []string{"XXH3-64"}, factory: plain(func() hash.Hash { return xxh3.New() })},
	{Name: "HMAC-SHA256", Bits: 256, Keyed: true, factory: hmacOf(sha256.New)},
	{Name: "HMAC-SHA512", Bits: 512, Keyed: true, factory: hmacOf(sha512.New)},
	{
		Name: "BLAKE2b-256-MAC", Bits: 256, Keyed: true,
		factory: func(key []byte) (hash.Hash, error) { return blake2b.New256(key) },
	},
}

// index maps normalized names and aliases to registry positions.
var index = buildIndex()

func buildIndex() map[string]int {
	m := make(map[string]int, len(registry)*2)
	for i, a := range registry {
		m[normalize(a.Name)] = i
		for _, alias := range a.aliases {
			m[normalize(alias)] = i
		}
	}
	return m
}

// normalize folds case and drops '-', '_' and spaces so that "sha-256",
// "SHA_256" and "Sha256" all resolve to the same algorithm.
func normalize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ', '\t':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(name)))
}

// Lookup resolves an algorithm by name or alias.
func Lookup(name string) (Algorithm, bool) {
	i, ok := index[normalize(name)]
	if !ok {
		return Algorithm{}, false
	}
	return registry[i], true
}

// MustLookup resolves name and returns an error wrapping ErrUnknownAlgorithm
// if it does not resolve.
func MustLookup(name string) (Algorithm, error) {
	a, ok := Lookup(name)
	if !ok {
		return Algorithm{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return a, nil
}

// All returns every registered algorithm in registration order.
func All() []Algorithm {
	out := make([]Algorithm, len(registry))
	copy(out, registry)
	return out
}

// Names returns the sorted canonical names of all algorithms.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, a := range registry {
		names = append(names, a.Name)
	}
	sort.Strings(names)
	return names
}
