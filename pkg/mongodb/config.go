package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDBClient struct {
	Client *mongo.Client
	Config MongoDbConfigModel
}

func InitializeDatabaseConnection(config MongoDbConfigModel) (*MongoDBClient, error) {
	clientOptions := options.Client().ApplyURI(config.ConnectionUrl)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connection error: %w", err)
	}

	if err := mongoClient.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping error: %w", err)
	}

	log.Info().Str("database", config.DatabaseName).Msg("connected to mongodb")

	client := &MongoDBClient{
		Client: mongoClient,
		Config: config,
	}
	if err := client.ensureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to ensure mongodb indexes")
	}
	return client, nil
}

func (client *MongoDBClient) GetCollectionByName(collectionName string) *mongo.Collection {
	return client.Client.Database(client.Config.DatabaseName).Collection(collectionName)
}

func (client *MongoDBClient) Disconnect(ctx context.Context) error {
	return client.Client.Disconnect(ctx)
}

func (client *MongoDBClient) ensureIndexes(ctx context.Context) error {
	_, err := client.GetCollectionByName("messages").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "notebook_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return err
	}
	_, err = client.GetCollectionByName("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
