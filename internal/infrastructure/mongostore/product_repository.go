package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/grainfield/orderflow/internal/domain/catalog"
)

type ProductRepository struct {
	coll   *mongo.Collection
	policy catalog.SalePolicy
}

func NewProductRepository(db *mongo.Database, policy catalog.SalePolicy) *ProductRepository {
	return &ProductRepository{coll: db.Collection(collProducts), policy: policy}
}

type productDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	UnitPrice    float64   `bson:"price"`
	Quantity     int       `bson:"quantity"`
	MinimumOrder int       `bson:"minimumOrder"`
	CreatedAt    time.Time `bson:"createdAt,omitempty"`
	UpdatedAt    time.Time `bson:"updatedAt,omitempty"`
}

func toProductDoc(p *catalog.Product) productDoc {
	return productDoc{
		ID:           p.ID,
		Name:         p.Name,
		UnitPrice:    p.UnitPrice,
		Quantity:     p.Quantity,
		MinimumOrder: p.MinimumOrder,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (d productDoc) toDomain() *catalog.Product {
	return &catalog.Product{
		ID:           d.ID,
		Name:         d.Name,
		UnitPrice:    d.UnitPrice,
		Quantity:     d.Quantity,
		MinimumOrder: d.MinimumOrder,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (r *ProductRepository) Insert(ctx context.Context, product *catalog.Product) error {
	_, err := r.coll.InsertOne(ctx, toProductDoc(product))
	return err
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*catalog.Product, error) {
	var doc productDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *ProductRepository) List(ctx context.Context) ([]*catalog.Product, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*catalog.Product
	for cursor.Next(ctx) {
		var doc productDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toDomain())
	}
	return out, cursor.Err()
}

// ApplySale decrements the stock and applies the watermark threshold in a
// single server-side pipeline update, with a quantity-sufficient filter unless
// oversell is allowed. This closes the read-modify-write race on quantity.
func (r *ProductRepository) ApplySale(ctx context.Context, productID string, quantity int) (*catalog.SaleResult, error) {
	if quantity <= 0 {
		return nil, catalog.ErrInvalidQuantity
	}

	filter := bson.M{"_id": productID}
	if !r.policy.AllowOversell {
		filter["quantity"] = bson.M{"$gte": quantity}
	}

	// Two $set stages so the threshold condition sees the decremented value.
	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "quantity", Value: bson.D{{Key: "$subtract", Value: bson.A{"$quantity", quantity}}}},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "minimumOrder", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$lt", Value: bson.A{"$quantity", r.policy.Watermark}}},
				"$quantity",
				"$minimumOrder",
			}}}},
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc productDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if !r.policy.AllowOversell {
			// Distinguish a missing product from a filtered-out short stock.
			n, countErr := r.coll.CountDocuments(ctx, bson.M{"_id": productID})
			if countErr == nil && n > 0 {
				return nil, catalog.ErrInsufficientStock
			}
		}
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// The pipeline returns the post-image; the pre-sale quantity is recovered
	// by adding the decrement back.
	product := doc.toDomain()
	return &catalog.SaleResult{
		Product:          product,
		CrossedWatermark: r.policy.Crossed(product.Quantity+quantity, product.Quantity),
	}, nil
}
