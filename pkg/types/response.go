package types

// The wire format uses an explicit status discriminator so browser
// clients can branch on a single field.

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SuccessEnvelope wraps a successful response body.
type SuccessEnvelope struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// ErrorEnvelope wraps a failed response body. LoginURL is set on
// authentication failures so clients know where to start the flow.
type ErrorEnvelope struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Details  any    `json:"details,omitempty"`
	LoginURL string `json:"login_url,omitempty"`
}

// PageEnvelope wraps a successful list response with cursor metadata.
type PageEnvelope struct {
	Status     string `json:"status"`
	Data       any    `json:"data"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}
