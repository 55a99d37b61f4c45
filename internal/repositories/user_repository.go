package repositories

import (
	"context"
	"notebook-ai/internal/models"
	"notebook-ai/pkg/mongodb"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type userRepository struct {
	userCollection *mongo.Collection
}

func NewUserRepository(mongoClient *mongodb.MongoDBClient) UserRepository {
	return &userRepository{
		userCollection: mongoClient.GetCollectionByName("users"),
	}
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.userCollection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.Base = models.NewBase()
	}
	_, err := r.userCollection.InsertOne(ctx, user)
	return err
}

func (r *userRepository) FindByID(ctx context.Context, userID string) (*models.User, error) {
	userIDPrimitive, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}
	var user models.User
	err = r.userCollection.FindOne(ctx, bson.M{"_id": userIDPrimitive}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
