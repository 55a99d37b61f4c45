package mongodb

type MongoDbConfigModel struct {
	ConnectionUrl string
	DatabaseName  string
}
