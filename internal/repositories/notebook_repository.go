package repositories

import (
	"context"
	"errors"
	"notebook-ai/internal/models"
	"notebook-ai/pkg/mongodb"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotebookRepository interface {
	Create(ctx context.Context, notebook *models.Notebook) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notebook, error)
	FindByUserID(ctx context.Context, userID primitive.ObjectID, page, pageSize int) ([]*models.Notebook, int64, error)
	CreateMessage(ctx context.Context, message *models.Message) error
	FindMessageByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	FindMessagesByNotebook(ctx context.Context, notebookID primitive.ObjectID) ([]*models.Message, error)
	UpdateMessageContent(ctx context.Context, id primitive.ObjectID, content string) error
	// MarkMessageFailed flags a still empty assistant message. It returns
	// ErrMessageCommitted when content was written first.
	MarkMessageFailed(ctx context.Context, id primitive.ObjectID) error
	DeleteMessage(ctx context.Context, id primitive.ObjectID) error
	DeleteMessages(ctx context.Context, notebookID primitive.ObjectID) error
}

// ErrMessageCommitted means the message already holds content.
var ErrMessageCommitted = errors.New("message content already committed")

type notebookRepository struct {
	notebookCollection *mongo.Collection
	messageCollection  *mongo.Collection
}

func NewNotebookRepository(mongoClient *mongodb.MongoDBClient) NotebookRepository {
	return &notebookRepository{
		notebookCollection: mongoClient.GetCollectionByName("notebooks"),
		messageCollection:  mongoClient.GetCollectionByName("messages"),
	}
}

func (r *notebookRepository) Create(ctx context.Context, notebook *models.Notebook) error {
	if notebook.ID.IsZero() {
		notebook.Base = models.NewBase()
	}
	_, err := r.notebookCollection.InsertOne(ctx, notebook)
	return err
}

func (r *notebookRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.notebookCollection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *notebookRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notebook, error) {
	var notebook models.Notebook
	err := r.notebookCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&notebook)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &notebook, nil
}

func (r *notebookRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID, page, pageSize int) ([]*models.Notebook, int64, error) {
	var notebooks []*models.Notebook
	filter := bson.M{"user_id": userID}

	total, err := r.notebookCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := int64((page - 1) * pageSize)
	opts := options.Find().
		SetSkip(skip).
		SetLimit(int64(pageSize)).
		SetSort(bson.D{{Key: "updated_at", Value: -1}})

	cursor, err := r.notebookCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	err = cursor.All(ctx, &notebooks)
	return notebooks, total, err
}

func (r *notebookRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	if message.ID.IsZero() {
		message.Base = models.NewBase()
	}
	if _, err := r.messageCollection.InsertOne(ctx, message); err != nil {
		return err
	}
	r.touchNotebook(ctx, message.NotebookID)
	return nil
}

func (r *notebookRepository) FindMessageByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var message models.Message
	err := r.messageCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&message)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// FindMessagesByNotebook returns the whole conversation, oldest first.
func (r *notebookRepository) FindMessagesByNotebook(ctx context.Context, notebookID primitive.ObjectID) ([]*models.Message, error) {
	messages := []*models.Message{}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.messageCollection.Find(ctx, bson.M{"notebook_id": notebookID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *notebookRepository) UpdateMessageContent(ctx context.Context, id primitive.ObjectID, content string) error {
	return r.updateMessage(ctx, id, bson.M{"content": content, "failed": false})
}

func (r *notebookRepository) MarkMessageFailed(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.messageCollection.UpdateOne(ctx,
		bson.M{"_id": id, "content": ""},
		bson.M{"$set": bson.M{"failed": true, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}

	count, err := r.messageCollection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if count == 0 {
		return mongo.ErrNoDocuments
	}
	return ErrMessageCommitted
}

func (r *notebookRepository) DeleteMessage(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.messageCollection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *notebookRepository) updateMessage(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now()
	result, err := r.messageCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *notebookRepository) DeleteMessages(ctx context.Context, notebookID primitive.ObjectID) error {
	_, err := r.messageCollection.DeleteMany(ctx, bson.M{"notebook_id": notebookID})
	return err
}

func (r *notebookRepository) touchNotebook(ctx context.Context, notebookID primitive.ObjectID) {
	_, _ = r.notebookCollection.UpdateOne(ctx, bson.M{"_id": notebookID}, bson.M{"$set": bson.M{"updated_at": time.Now()}})
}
