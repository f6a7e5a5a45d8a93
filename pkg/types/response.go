package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// CallbackEnvelope is the soft-failure shape returned to the remote supplier
// platform. Webhook senders cannot usefully retry a permanent absence, so
// lookups that miss answer 200 with success=false instead of an HTTP error.
type CallbackEnvelope struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId,omitempty"`
	Message string `json:"message,omitempty"`
}
