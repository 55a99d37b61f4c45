package models

import (
	"notebook-ai/internal/constants"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is one turn of a notebook conversation. Assistant messages are
// created empty and filled in by the answer engine; Failed marks one that
// will never receive content.
type Message struct {
	UserID     primitive.ObjectID    `bson:"user_id" json:"user_id"`
	NotebookID primitive.ObjectID    `bson:"notebook_id" json:"notebook_id"`
	Role       constants.MessageType `bson:"role" json:"role"`
	Content    string                `bson:"content" json:"content"`
	Failed     bool                  `bson:"failed" json:"failed"`
	Base       `bson:",inline"`
}

func NewMessage(userID, notebookID primitive.ObjectID, role constants.MessageType, content string) *Message {
	return &Message{
		UserID:     userID,
		NotebookID: notebookID,
		Role:       role,
		Content:    content,
		Base:       NewBase(),
	}
}
