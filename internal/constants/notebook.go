package constants

type EncryptionType string

const (
	EncryptionNone     EncryptionType = "NotEncrypted"
	EncryptionSimple   EncryptionType = "SimpleEncryption"
	EncryptionAdvanced EncryptionType = "AdvancedEncryption"
)

func (e EncryptionType) IsValid() bool {
	switch e {
	case EncryptionNone, EncryptionSimple, EncryptionAdvanced:
		return true
	}
	return false
}

// Encrypted reports whether message content in this mode is stored encrypted.
func (e EncryptionType) Encrypted() bool {
	return e == EncryptionSimple || e == EncryptionAdvanced
}

const (
	MaxNotebookNameLength = 120
	MaxQuestionLength     = 8000
)
