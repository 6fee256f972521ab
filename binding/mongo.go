package binding

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/hhkbp2/workgen/engine"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	ConfigMongoURI        = "uri"
	ConfigMongoURIDefault = "mongodb://127.0.0.1:27017"

	mongoCatalogCollection = "workgen_catalog"
	mongoWriteConflict     = 112
)

// MongoDriver stores tables as collections of the database named by home.
// Keys are hex encoded into _id so that _id order is key order.
type MongoDriver struct{}

func NewMongoDriver() *MongoDriver {
	return &MongoDriver{}
}

func (self *MongoDriver) ConfigKeys() []string {
	return []string{ConfigMongoURI}
}

func (self *MongoDriver) Open(ctx context.Context, home string, config *engine.Config) (engine.Store, error) {
	if len(home) == 0 {
		return nil, engine.Errorf(engine.ErrConnection, "empty home")
	}
	opts := options.Client().
		ApplyURI(config.Get(ConfigMongoURI, ConfigMongoURIDefault)).
		SetMaxPoolSize(uint64(config.SessionMax))
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, engine.Wrap(engine.ErrConnection, err, "connect mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, engine.Wrap(engine.ErrConnection, err, "ping mongo")
	}
	if !config.Create {
		names, err := client.ListDatabaseNames(ctx, bson.M{"name": home})
		if err != nil {
			client.Disconnect(ctx)
			return nil, engine.Wrap(engine.ErrConnection, err, "list databases")
		}
		if len(names) == 0 {
			client.Disconnect(ctx)
			return nil, engine.Errorf(engine.ErrConnection, "database %q does not exist", home)
		}
	}
	return &MongoStore{
		client: client,
		db:     client.Database(home),
	}, nil
}

type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoRow struct {
	ID    string `bson:"_id"`
	Value []byte `bson:"v"`
}

type mongoSchema struct {
	Name   string `bson:"_id"`
	Schema string `bson:"schema"`
}

func mongoIsConflict(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorLabel("TransientTransactionError") || se.HasErrorCode(mongoWriteConflict) {
			return true
		}
	}
	return false
}

func mongoError(err error, format string, args ...interface{}) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return engine.ErrNotFound
	case mongoIsConflict(err):
		return engine.Wrap(engine.ErrConflict, err, format, args...)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		return engine.Wrap(engine.ErrUnavailable, err, format, args...)
	}
	return engine.Wrap(engine.ErrEngine, err, format, args...)
}

func (self *MongoStore) collection(table string) *mongo.Collection {
	return self.db.Collection(sqlTablePrefix + table)
}

func (self *MongoStore) CreateTable(ctx context.Context, table string, schema string) error {
	_, err := self.db.Collection(mongoCatalogCollection).ReplaceOne(ctx,
		bson.M{"_id": table},
		mongoSchema{Name: table, Schema: schema},
		options.Replace().SetUpsert(true))
	if err != nil {
		return mongoError(err, "create %q", table)
	}
	return nil
}

func (self *MongoStore) Tables(ctx context.Context) (map[string]string, error) {
	cursor, err := self.db.Collection(mongoCatalogCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, mongoError(err, "list tables")
	}
	var schemas []mongoSchema
	if err := cursor.All(ctx, &schemas); err != nil {
		return nil, mongoError(err, "list tables")
	}
	ret := make(map[string]string, len(schemas))
	for _, s := range schemas {
		ret[s.Name] = s.Schema
	}
	return ret, nil
}

func (self *MongoStore) Insert(ctx context.Context, table string, key, value []byte) error {
	id := hex.EncodeToString(key)
	_, err := self.collection(table).ReplaceOne(ctx,
		bson.M{"_id": id},
		mongoRow{ID: id, Value: value},
		options.Replace().SetUpsert(true))
	if err != nil {
		return mongoError(err, "insert into %q", table)
	}
	return nil
}

func (self *MongoStore) Update(ctx context.Context, table string, key, value []byte) error {
	return self.Insert(ctx, table, key, value)
}

func (self *MongoStore) Search(ctx context.Context, table string, key []byte) ([]byte, error) {
	var row mongoRow
	err := self.collection(table).FindOne(ctx, bson.M{"_id": hex.EncodeToString(key)}).Decode(&row)
	if err != nil {
		return nil, mongoError(err, "read from %q", table)
	}
	return row.Value, nil
}

func (self *MongoStore) Remove(ctx context.Context, table string, key []byte) error {
	res, err := self.collection(table).DeleteOne(ctx, bson.M{"_id": hex.EncodeToString(key)})
	if err != nil {
		return mongoError(err, "remove from %q", table)
	}
	if res.DeletedCount == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func (self *MongoStore) Scan(ctx context.Context, table string, after []byte, limit int) ([]engine.KV, error) {
	filter := bson.M{}
	if after != nil {
		filter = bson.M{"_id": bson.M{"$gt": hex.EncodeToString(after)}}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := self.collection(table).Find(ctx, filter, opts)
	if err != nil {
		return nil, mongoError(err, "scan %q", table)
	}
	var rows []mongoRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, mongoError(err, "scan %q", table)
	}
	ret := make([]engine.KV, 0, len(rows))
	for _, row := range rows {
		key, err := hex.DecodeString(row.ID)
		if err != nil {
			return nil, engine.Wrap(engine.ErrEngine, err, "scan %q", table)
		}
		ret = append(ret, engine.KV{Key: key, Value: row.Value})
	}
	return ret, nil
}

func (self *MongoStore) Last(ctx context.Context, table string) ([]byte, error) {
	var row mongoRow
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	if err := self.collection(table).FindOne(ctx, bson.M{}, opts).Decode(&row); err != nil {
		return nil, mongoError(err, "last of %q", table)
	}
	key, err := hex.DecodeString(row.ID)
	if err != nil {
		return nil, engine.Wrap(engine.ErrEngine, err, "last of %q", table)
	}
	return key, nil
}

func (self *MongoStore) Close() error {
	return self.client.Disconnect(context.Background())
}
