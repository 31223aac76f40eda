package overlay

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"sync"
)

// TokenRegistry maps opaque tokens to filesystem paths so play commands
// never expose raw paths to remote clients. Tokens are derived
// deterministically from the absolute path (registering the same file
// twice yields the same token) and live only for the process lifetime.
type TokenRegistry struct {
	mu     sync.RWMutex
	tokens map[string]string // token -> absolute path
}

// NewTokenRegistry creates an empty registry.
func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{tokens: make(map[string]string)}
}

// Register returns the token for path, recording it for later resolution.
func (r *TokenRegistry) Register(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha1.Sum([]byte(abs))
	token := hex.EncodeToString(sum[:])

	r.mu.Lock()
	r.tokens[token] = abs
	r.mu.Unlock()
	return token
}

// Resolve returns the path a token was registered for.
func (r *TokenRegistry) Resolve(token string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.tokens[token]
	return path, ok
}
