package savouragent

import (
	"net/http"
)

// HTTPClient is the minimal HTTP surface the LLM and embedding clients need.
// Kept as an interface so tests can inject doubles.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
