package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/grainfield/orderflow/internal/domain/order"
)

type OrderRepository struct {
	coll *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: db.Collection(collOrders)}
}

// orderDoc mirrors the storefront's historical document shape: status may be
// absent (meaning pending) and transactionId unset until confirmation.
type orderDoc struct {
	ID            string    `bson:"_id"`
	ProductID     string    `bson:"productID"`
	ProductName   string    `bson:"productName,omitempty"`
	Email         string    `bson:"email"`
	Quantity      int       `bson:"orderQuantity"`
	TotalPrice    float64   `bson:"totalPrice"`
	Address       string    `bson:"address,omitempty"`
	Phone         string    `bson:"phone,omitempty"`
	IsPaid        bool      `bson:"isPaid"`
	Status        string    `bson:"status,omitempty"`
	TransactionID string    `bson:"transactionId,omitempty"`
	CreatedAt     time.Time `bson:"createdAt,omitempty"`
	UpdatedAt     time.Time `bson:"updatedAt,omitempty"`
}

func toOrderDoc(o *domain.Order) orderDoc {
	return orderDoc{
		ID:            o.ID,
		ProductID:     o.ProductID,
		ProductName:   o.ProductName,
		Email:         o.Email,
		Quantity:      o.Quantity,
		TotalPrice:    o.TotalPrice,
		Address:       o.Address,
		Phone:         o.Phone,
		IsPaid:        o.IsPaid,
		Status:        string(o.Status),
		TransactionID: o.TransactionID,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func (d orderDoc) toDomain() *domain.Order {
	return &domain.Order{
		ID:            d.ID,
		ProductID:     d.ProductID,
		ProductName:   d.ProductName,
		Email:         d.Email,
		Quantity:      d.Quantity,
		TotalPrice:    d.TotalPrice,
		Address:       d.Address,
		Phone:         d.Phone,
		IsPaid:        d.IsPaid,
		Status:        domain.Status(d.Status).Normalized(),
		TransactionID: d.TransactionID,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_, err := r.coll.InsertOne(ctx, toOrderDoc(order))
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	var doc orderDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *OrderRepository) ListByEmail(ctx context.Context, email string) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"email": email}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*domain.Order
	for cursor.Next(ctx) {
		var doc orderDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toDomain())
	}
	return out, cursor.Err()
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": order.ID}, toOrderDoc(order))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
