package catalog

// searchAttempt is one guess at the shape of the undocumented search
// capability: an endpoint path plus the key the query is sent under.
// Attempts are ordered by decreasing likelihood, each attempt is
// independent and side-effect-free on failure, and the probe loop
// short-circuits on the first structurally valid, code-matching result.
type searchAttempt struct {
	Path       string
	PayloadKey string
}

// Name identifies the attempt in logs and resolution traces.
func (a searchAttempt) Name() string {
	return a.Path + "?" + a.PayloadKey
}

var searchPaths = []string{
	"/Products/Search",
	"/products/search",
	"/api/Products/Search",
	"/api/products/search",
}

var searchPayloadKeys = []string{"q", "Query", "text", "Code"}

// buildSearchAttempts enumerates every path and payload-key combination,
// most likely shapes first.
func buildSearchAttempts() []searchAttempt {
	attempts := make([]searchAttempt, 0, len(searchPaths)*len(searchPayloadKeys))
	for _, path := range searchPaths {
		for _, key := range searchPayloadKeys {
			attempts = append(attempts, searchAttempt{Path: path, PayloadKey: key})
		}
	}
	return attempts
}
