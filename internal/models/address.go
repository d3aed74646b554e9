package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddressAssignment records the receiving address issued for one
// transaction. Addresses are never shared across transactions; keying by
// transaction code lets a retried initiation reuse the address it was
// already issued.
type AddressAssignment struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	TransactionCode string             `bson:"transaction_code" json:"transaction_code"`
	Payee           string             `bson:"payee" json:"payee"`
	Address         string             `bson:"address" json:"address"`
	RequestID       string             `bson:"request_id" json:"request_id"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}
