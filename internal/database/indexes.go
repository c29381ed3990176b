package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	collectionCarts    = "carts"
	collectionOrders   = "orders"
	collectionPayments = "payments"
)

func EnsureOrderIndexes(db *mongo.Database, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection(collectionOrders).Indexes()
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "number", Value: 1}},
			Options: options.Index().SetName("number_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("userId_index"),
		},
	}

	log.Info("creating order indexes")
	if _, err := indexes.CreateMany(ctx, indexModels); err != nil {
		log.Error("order index error", zap.Error(err))
		return err
	}
	return nil
}

// EnsurePaymentIndexes makes a second payment for the same order, or a
// reused idempotency key, a duplicate key error.
func EnsurePaymentIndexes(db *mongo.Database, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection(collectionPayments).Indexes()
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().SetName("orderId_unique").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "idempotencyKey", Value: 1}},
			Options: options.Index().
				SetName("idempotencyKey_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"idempotencyKey": bson.M{
						"$exists": true,
					},
				}),
		},
	}

	log.Info("creating payment indexes")
	if _, err := indexes.CreateMany(ctx, indexModels); err != nil {
		log.Error("payment index error", zap.Error(err))
		return err
	}
	return nil
}

func EnsureCartIndexes(db *mongo.Database, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	line := mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "productId", Value: 1}},
		Options: options.Index().SetName("user_product_unique").SetUnique(true),
	}
	log.Info("creating cart indexes")
	if _, err := db.Collection(collectionCarts).Indexes().CreateOne(ctx, line); err != nil {
		log.Error("cart index error", zap.Error(err))
		return err
	}
	return nil
}
