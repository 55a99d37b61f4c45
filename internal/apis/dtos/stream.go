package dtos

// SubmissionStarted is the first event of a submission stream.
type SubmissionStarted struct {
	NotebookID         string `json:"notebook_id"`
	UserMessageID      string `json:"user_message_id"`
	AssistantMessageID string `json:"assistant_message_id"`
}

type StreamError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
}
