package forge

import "net/http"

// headerValue reads a webhook header from a normalized header map. Maps built
// by ranging over an http.Request carry Go's canonical key spelling, which
// differs from the names some forges document (X-GitHub-Event arrives as
// X-Github-Event), so both spellings are accepted.
func headerValue(headers map[string]string, key string) string {
	if v, ok := headers[key]; ok {
		return v
	}
	return headers[http.CanonicalHeaderKey(key)]
}
