package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/vendaria/pos-api/internal/domain/operator"
)

// operatorKey is the context key for the authenticated operator.
type operatorKey struct{}

// OperatorFromContext returns the operator authenticated by APIKeyAuth.
func OperatorFromContext(ctx context.Context) (*operator.Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(*operator.Operator)
	return op, ok
}

// APIKeyAuth returns a middleware that authenticates requests via the api_key
// header. The key is hashed with HMAC-SHA256 and the pepper, looked up in the
// operator repository, and compared in constant time to prevent timing
// side-channels. The matched operator is stored in the request context.
func APIKeyAuth(operators operator.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("api_key")
			if key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)
			hexHash := hex.EncodeToString(hash)

			op, err := operators.FindByKeyHash(r.Context(), hexHash)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// Constant-time comparison guards against timing side-channels
			// even though the lookup already succeeded; the stored hash could
			// differ from what we computed if the repository returns a
			// stale/wrong row.
			storedBytes, err := hex.DecodeString(op.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(hash, storedBytes) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), operatorKey{}, op)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
