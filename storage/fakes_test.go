package storage

import (
	"context"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// roundTrip copies src into dst through BSON so fakes decode like the driver
func roundTrip(src, dst interface{}) error {
	data, err := bson.Marshal(src)
	if err != nil {
		return err
	}
	return bson.Unmarshal(data, dst)
}

type fakeCursor struct {
	docs   []interface{}
	err    error
	closed bool
}

func (c *fakeCursor) All(ctx context.Context, results interface{}) error {
	if c.err != nil {
		return c.err
	}
	slice := reflect.ValueOf(results).Elem()
	for _, doc := range c.docs {
		elem := reflect.New(slice.Type().Elem())
		if err := roundTrip(doc, elem.Interface()); err != nil {
			return err
		}
		slice.Set(reflect.Append(slice, elem.Elem()))
	}
	return nil
}

func (c *fakeCursor) Close(ctx context.Context) error {
	c.closed = true
	return nil
}

type fakeSingleResult struct {
	doc interface{}
	err error
}

func (r *fakeSingleResult) Decode(v interface{}) error {
	if r.err != nil {
		return r.err
	}
	return roundTrip(r.doc, v)
}

// fakeCollection records the last call and answers from func fields
type fakeCollection struct {
	FindFunc       func(filter interface{}, opts ...*options.FindOptions) (Cursor, error)
	FindOneFunc    func(filter interface{}) SingleResult
	InsertOneFunc  func(document interface{}) (*mongo.InsertOneResult, error)
	ReplaceOneFunc func(filter, replacement interface{}) (*mongo.UpdateResult, error)
	DeleteOneFunc  func(filter interface{}) (*mongo.DeleteResult, error)
	DeleteManyFunc func(filter interface{}) (*mongo.DeleteResult, error)
	indexes        []mongo.IndexModel
	lastFilter     interface{}
}

func (f *fakeCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (Cursor, error) {
	f.lastFilter = filter
	return f.FindFunc(filter, opts...)
}

func (f *fakeCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) SingleResult {
	f.lastFilter = filter
	return f.FindOneFunc(filter)
}

func (f *fakeCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	return f.InsertOneFunc(document)
}

func (f *fakeCollection) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	f.lastFilter = filter
	return f.ReplaceOneFunc(filter, replacement)
}

func (f *fakeCollection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	f.lastFilter = filter
	return f.DeleteOneFunc(filter)
}

func (f *fakeCollection) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	f.lastFilter = filter
	return f.DeleteManyFunc(filter)
}

func (f *fakeCollection) EnsureIndexes(ctx context.Context, models []mongo.IndexModel) error {
	f.indexes = append(f.indexes, models...)
	return nil
}

func duplicateKeyError() error {
	return mongo.WriteException{
		WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}},
	}
}
