package chi

import (
	"net/http"
	"strings"
)

// exemptPaths bypass authentication so probes and scrapers need no key.
var exemptPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// BearerAuthMiddleware validates Bearer tokens against the configured API
// keys. An empty key set disables authentication entirely.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, exempt := exemptPaths[r.URL.Path]; exempt {
				next.ServeHTTP(w, r)
				return
			}
			if code, msg, ok := checkBearer(r, keys); !ok {
				writeError(w, http.StatusUnauthorized, code, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func checkBearer(r *http.Request, keys map[string]struct{}) (errorCode, string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return codeUnauthorized, "missing authorization header", false
	}
	token, isBearer := strings.CutPrefix(header, "Bearer ")
	if !isBearer {
		return codeUnauthorized, "authorization header must use Bearer scheme", false
	}
	if _, valid := keys[token]; !valid {
		return codeUnauthorized, "invalid api key", false
	}
	return "", "", true
}
