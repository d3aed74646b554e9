package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction is one tracked transfer, keyed by the caller-supplied
// transaction code. Amounts are fixed-point decimal strings; the settlement
// amount is computed once at creation and never recomputed.
type Transaction struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	TransactionCode       string             `bson:"transaction_code" json:"transaction_code"`
	Payee                 string             `bson:"payee" json:"payee"`
	PayeeContact          string             `bson:"payee_contact" json:"payee_contact,omitempty"`
	ItemName              string             `bson:"item_name" json:"item_name"`
	OriginalAmount        string             `bson:"original_amount" json:"original_amount"`
	OriginalCurrencyCode  string             `bson:"original_currency_code" json:"original_currency_code"`
	SettlementAmount      string             `bson:"settlement_amount" json:"settlement_amount"`
	NotifyURL             string             `bson:"notify_url" json:"notify_url"`
	ReceivingAddress      string             `bson:"receiving_address" json:"receiving_address"`
	ConfirmationsRequired int                `bson:"confirmations_required" json:"confirmations_required"`
	ConfirmationsReceived int                `bson:"confirmations_received" json:"confirmations_received"`
	CreatedAt             time.Time          `bson:"created_at" json:"created_at"`
	PaymentDetectedAt     *time.Time         `bson:"payment_detected_at,omitempty" json:"payment_detected_at,omitempty"`
	NotifiedAt            *time.Time         `bson:"notified_at,omitempty" json:"notified_at,omitempty"`
}
