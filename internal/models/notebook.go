package models

import (
	"notebook-ai/internal/constants"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Notebook struct {
	UserID      primitive.ObjectID       `bson:"user_id" json:"user_id"`
	Name        string                   `bson:"name" json:"name"`
	Description string                   `bson:"description" json:"description"`
	Encryption  constants.EncryptionType `bson:"encryption" json:"encryption"`
	Base        `bson:",inline"`
}

func NewNotebook(userID primitive.ObjectID, name, description string, encryption constants.EncryptionType) *Notebook {
	if encryption == "" {
		encryption = constants.EncryptionNone
	}
	return &Notebook{
		UserID:      userID,
		Name:        name,
		Description: description,
		Encryption:  encryption,
		Base:        NewBase(),
	}
}
