package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/promokit/promo-pricing/internal/domain/auth"
)

// APIKeyHeader carries the management API key.
const APIKeyHeader = "X-Api-Key"

// SecurityHandler authenticates requests via HMAC-SHA256 hashed API keys.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// HashKey computes the stored form of an API key: the hex-encoded HMAC-SHA256
// of the key under the configured pepper.
func (s *SecurityHandler) HashKey(key string) string {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// RequireAPIKey rejects requests whose API key header does not resolve to an
// active key. The stored hash is compared in constant time to guard against
// timing side-channels in case the repository returns a stale row.
func (s *SecurityHandler) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			writeUnauthorized(w)
			return
		}

		mac := hmac.New(sha256.New, s.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)

		info, err := s.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			writeUnauthorized(w)
			return
		}

		storedBytes, err := hex.DecodeString(info.KeyHash)
		if err != nil {
			writeUnauthorized(w)
			return
		}
		if subtle.ConstantTimeCompare(hash, storedBytes) != 1 {
			writeUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{
		Code:    http.StatusUnauthorized,
		Message: "unauthorized",
	})
}
