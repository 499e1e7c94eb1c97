// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Souk Contributors

package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

const apiKeyHeader = "X-API-Key"

// KeyValidator checks client API keys against a configured set. Keys
// are held as SHA-256 hashes and compared in constant time.
type KeyValidator struct {
	hashes [][32]byte
}

// NewKeyValidator builds a validator from plaintext keys, ignoring
// blank entries. Returns nil when no usable keys are configured, which
// disables authentication.
func NewKeyValidator(keys []string) *KeyValidator {
	var hashes [][32]byte
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			continue
		}
		hashes = append(hashes, sha256.Sum256([]byte(key)))
	}
	if len(hashes) == 0 {
		return nil
	}
	return &KeyValidator{hashes: hashes}
}

// Validate reports whether candidate matches a configured key. The
// whole set is always scanned so timing does not leak which key
// matched or how many are configured.
func (v *KeyValidator) Validate(candidate string) bool {
	candidateHash := sha256.Sum256([]byte(candidate))

	matched := false
	for _, hash := range v.hashes {
		if subtle.ConstantTimeCompare(hash[:], candidateHash[:]) == 1 {
			matched = true
		}
	}
	return matched
}

// apiKeyMiddleware enforces the X-API-Key header on /api/ routes.
// Health and documentation endpoints stay open. With no validator
// configured every request passes, with a startup warning.
func apiKeyMiddleware(keys *KeyValidator) func(http.Handler) http.Handler {
	if keys == nil {
		slog.Warn("no API keys configured, authentication disabled")
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			if !keys.Validate(r.Header.Get(apiKeyHeader)) {
				slog.Warn("rejected request with invalid API key",
					"method", r.Method,
					"path", r.URL.Path,
					"remote", r.RemoteAddr,
				)
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"title":  "Unauthorized",
		"status": http.StatusUnauthorized,
		"detail": "invalid or missing API key",
	})
}
