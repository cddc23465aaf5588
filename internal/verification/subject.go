package verification

import (
	"encoding/hex"
	"errors"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// SubjectHasher fingerprints verification parameters so history rows can be
// correlated without storing the PAN, Aadhaar or account number itself.
type SubjectHasher struct {
	key []byte
}

// NewSubjectHasher accepts keys of up to 64 bytes. An empty key yields an
// unkeyed hash, which is only acceptable outside production.
func NewSubjectHasher(key []byte) (*SubjectHasher, error) {
	if len(key) > blake2b.Size {
		return nil, errors.New("subject hash key must be at most 64 bytes")
	}
	return &SubjectHasher{key: append([]byte(nil), key...)}, nil
}

// Hash is independent of map iteration order.
func (h *SubjectHasher) Hash(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(0)
		b.WriteString(strings.TrimSpace(params[k]))
		b.WriteByte(0)
	}

	mac, err := blake2b.New256(h.key)
	if err != nil {
		// key length is checked in NewSubjectHasher
		panic(err)
	}
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}
