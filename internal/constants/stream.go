package constants

// Server-sent event names on the submission stream.
const (
	StreamEventSubmission = "submission"
	StreamEventStatus     = "status"
	StreamEventError      = "error"
	StreamEventCancelled  = "cancelled"
	StreamEventDone       = "done"
	StreamEventHeartbeat  = "heartbeat"
)

const (
	// StatusBufferSize is how many status tokens may queue between the
	// upstream reader and the transport writer.
	StatusBufferSize = 32

	// CancelChannel is the redis pub/sub channel for cross-instance stops.
	CancelChannel = "notebook-ai:submission-cancel"

	EncryptionKeyHeader = "X-Encryption-Key"
	EngineSecretHeader  = "X-Engine-Secret"
)
