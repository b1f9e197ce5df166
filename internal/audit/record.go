package audit

// Record describes one HTTP request/response cycle. It is created per
// request by the interceptor, shipped once to the time-series sink, and
// never read back.
//
// Body and Response are always empty: request/response body capture is a
// deliberate no-op placeholder, not yet implemented.
type Record struct {
	Method      string
	ReqHeaders  map[string]string
	HTTPVersion string
	Path        string
	Scheme      string
	Type        string
	PathParams  map[string]string
	QueryString string
	Server      string
	Client      string
	Body        string
	StatusCode  int
	ProcessTime float64 // seconds
	CreatedAt   string  // RFC3339, captured before handler execution
	ResHeaders  map[string]string
	Response    string
}
