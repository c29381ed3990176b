package database

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type MongoRepository struct {
	carts    *mongo.Collection
	orders   *mongo.Collection
	payments *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		carts:    db.Collection(collectionCarts),
		orders:   db.Collection(collectionOrders),
		payments: db.Collection(collectionPayments),
	}
}

type cartLineDocument struct {
	UserID    string `bson:"userId"`
	ProductID string `bson:"productId"`
	Quantity  int    `bson:"quantity"`
}

func (r *MongoRepository) SetCartLine(ctx context.Context, userID, productID string, quantity int) error {
	filter := bson.M{"userId": userID, "productId": productID}
	if quantity <= 0 {
		_, err := r.carts.DeleteOne(ctx, filter)
		return err
	}
	_, err := r.carts.UpdateOne(ctx, filter,
		bson.M{"$set": bson.M{"quantity": quantity}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *MongoRepository) CartLines(ctx context.Context, userID string) (map[string]int, error) {
	cursor, err := r.carts.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []cartLineDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(docs))
	for _, doc := range docs {
		out[doc.ProductID] = doc.Quantity
	}
	return out, nil
}

func (r *MongoRepository) CreateOrder(ctx context.Context, order OrderRecord) error {
	_, err := r.orders.InsertOne(ctx, order)
	return translate(err)
}

func (r *MongoRepository) FindOrder(ctx context.Context, id string) (OrderRecord, error) {
	return r.findOrder(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) FindOrderByNumber(ctx context.Context, number string) (OrderRecord, error) {
	return r.findOrder(ctx, bson.M{"number": number})
}

func (r *MongoRepository) findOrder(ctx context.Context, filter bson.M) (OrderRecord, error) {
	var order OrderRecord
	if err := r.orders.FindOne(ctx, filter).Decode(&order); err != nil {
		return OrderRecord{}, translate(err)
	}
	return order, nil
}

func (r *MongoRepository) SetOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	res, err := r.orders.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) ListOrders(ctx context.Context, userID string, page, limit int64) ([]OrderRecord, int64, error) {
	filter := bson.M{"userId": userID}
	total, err := r.orders.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSkip((page - 1) * limit).
		SetLimit(limit).
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "number", Value: -1}})

	cursor, err := r.orders.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders := []OrderRecord{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *MongoRepository) CreatePayment(ctx context.Context, payment PaymentRecord) error {
	_, err := r.payments.InsertOne(ctx, payment)
	return translate(err)
}

func (r *MongoRepository) FindPaymentByKey(ctx context.Context, key string) (PaymentRecord, error) {
	var payment PaymentRecord
	if err := r.payments.FindOne(ctx, bson.M{"idempotencyKey": key}).Decode(&payment); err != nil {
		return PaymentRecord{}, translate(err)
	}
	return payment, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}
