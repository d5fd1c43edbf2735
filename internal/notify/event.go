package notify

// SubmissionEvent is the ephemeral "notify" trigger raised when a lead
// form is accepted. It is not persisted by the engine; the submission
// record itself belongs to the intake layer.
type SubmissionEvent struct {
	FormType     string            `json:"form_type"`
	SubmissionID string            `json:"submission_id,omitempty"`
	Payload      map[string]string `json:"payload"`
}

// Summary is the aggregate outcome of one dispatch call. Attempted is
// always Sent+Failed; a zero summary means the event was suppressed.
type Summary struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}
