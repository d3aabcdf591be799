package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domain "github.com/grainfield/orderflow/internal/domain/payment"
)

// PaymentRepository appends to the payments collection; nothing in the
// workflow updates or deletes these documents.
type PaymentRepository struct {
	coll *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{coll: db.Collection(collPayments)}
}

type paymentDoc struct {
	TransactionID string    `bson:"transactionId"`
	OrderID       string    `bson:"orderID"`
	Email         string    `bson:"email"`
	PayerName     string    `bson:"userName,omitempty"`
	Amount        float64   `bson:"amount"`
	CreatedAt     time.Time `bson:"createdAt"`
}

func (r *PaymentRepository) Insert(ctx context.Context, record *domain.Record) error {
	_, err := r.coll.InsertOne(ctx, paymentDoc{
		TransactionID: record.TransactionID,
		OrderID:       record.OrderID,
		Email:         record.Email,
		PayerName:     record.PayerName,
		Amount:        record.Amount,
		CreatedAt:     record.CreatedAt,
	})
	return err
}

func (r *PaymentRepository) ListByEmail(ctx context.Context, email string) ([]*domain.Record, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"email": email})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*domain.Record
	for cursor.Next(ctx) {
		var doc paymentDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, &domain.Record{
			TransactionID: doc.TransactionID,
			OrderID:       doc.OrderID,
			Email:         doc.Email,
			PayerName:     doc.PayerName,
			Amount:        doc.Amount,
			CreatedAt:     doc.CreatedAt,
		})
	}
	return out, cursor.Err()
}
