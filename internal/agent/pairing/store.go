// Package pairing persists the code a browser uses to find this agent.
package pairing

import (
	"crypto/rand"
	"errors"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

// CodeLength is the number of characters in a pairing code.
const CodeLength = 8

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Store loads or creates the pairing code kept in a single file.
type Store struct {
	path string

	mu   sync.Mutex
	code string
}

// NewStore creates a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// GetOrCreateCode returns the saved code when it is valid, otherwise it
// generates a new one and saves it. The file is read at most once.
func (s *Store) GetOrCreateCode() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code != "" {
		return s.code, nil
	}

	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if code := strings.TrimSpace(string(data)); Valid(code) {
			s.code = code
			return code, nil
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return "", appErr.Wrapf(err, appErr.PairingStoreFailed, "read %s failed", s.path)
	}

	code, err := Generate()
	if err != nil {
		return "", err
	}
	if err := writeDurable(s.path, []byte(code)); err != nil {
		return "", err
	}
	s.code = code
	return code, nil
}

// Generate draws CodeLength characters uniformly from [A-Z0-9].
func Generate() (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", appErr.Wrapf(err, appErr.PairingCodeGenerateErr, "read random failed")
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Valid reports whether code is exactly CodeLength ASCII letters or digits.
func Valid(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !('A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

// Format renders code as XXXX-XXXX.
func Format(code string) string {
	if len(code) != CodeLength {
		return code
	}
	half := CodeLength / 2
	return code[:half] + "-" + code[half:]
}

func writeDurable(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return appErr.Wrapf(err, appErr.PairingStoreFailed, "create %s failed", dir)
	}
	tmp, err := os.CreateTemp(dir, ".pairing-*")
	if err != nil {
		return appErr.Wrapf(err, appErr.PairingStoreFailed, "create temp file failed")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return appErr.Wrapf(err, appErr.PairingStoreFailed, "write code failed")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return appErr.Wrapf(err, appErr.PairingStoreFailed, "sync code failed")
	}
	if err := tmp.Close(); err != nil {
		return appErr.Wrapf(err, appErr.PairingStoreFailed, "close temp file failed")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return appErr.Wrapf(err, appErr.PairingStoreFailed, "rename code file failed")
	}
	return nil
}
