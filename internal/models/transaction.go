package models

import (
	"time"
)

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusSuccess    TransactionStatus = "success"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusProcessing, TransactionStatusSuccess,
		TransactionStatusFailed, TransactionStatusCancelled:
		return true
	}
	return false
}

// Open reports whether the transaction still waits for settlement.
func (s TransactionStatus) Open() bool {
	return s == TransactionStatusPending || s == TransactionStatusProcessing
}

type PaymentMethod string

const (
	PaymentOVO          PaymentMethod = "ovo"
	PaymentDANA         PaymentMethod = "dana"
	PaymentGoPay        PaymentMethod = "gopay"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCreditCard   PaymentMethod = "credit_card"
)

type PaymentChannel struct {
	Code PaymentMethod `json:"code"`
	Name string        `json:"name"`
	Fee  int64         `json:"fee"`
}

// PaymentChannels lists the checkout methods and their flat fee in rupiah.
var PaymentChannels = []PaymentChannel{
	{Code: PaymentOVO, Name: "OVO", Fee: 0},
	{Code: PaymentDANA, Name: "DANA", Fee: 0},
	{Code: PaymentGoPay, Name: "GoPay", Fee: 0},
	{Code: PaymentBankTransfer, Name: "Transfer Bank", Fee: 2500},
	{Code: PaymentCreditCard, Name: "Kartu Kredit", Fee: 3000},
}

func FindPaymentChannel(code PaymentMethod) (PaymentChannel, bool) {
	for _, ch := range PaymentChannels {
		if ch.Code == code {
			return ch, true
		}
	}
	return PaymentChannel{}, false
}

type Transaction struct {
	ID            string            `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID        string            `gorm:"type:varchar(64);index" json:"user_id"`
	UserName      string            `gorm:"type:varchar(120);not null" json:"user_name"`
	UserEmail     string            `gorm:"type:varchar(150)" json:"user_email,omitempty"`
	UserPhone     string            `gorm:"type:varchar(30);not null" json:"user_phone"`
	GameID        string            `gorm:"type:varchar(64)" json:"game_id"`
	ServerID      string            `gorm:"type:varchar(64)" json:"server_id,omitempty"`
	ProductID     string            `gorm:"type:varchar(120);index" json:"product_id"`
	VariantID     string            `gorm:"type:varchar(120)" json:"variant_id"`
	ProductName   string            `gorm:"type:varchar(200)" json:"product_name"`
	VariantName   string            `gorm:"type:varchar(200)" json:"variant_name"`
	Amount        int64             `gorm:"not null" json:"amount"`
	PaymentMethod PaymentMethod     `gorm:"type:varchar(30)" json:"payment_method"`
	Status        TransactionStatus `gorm:"type:varchar(20);index;default:'pending'" json:"status"`
	ReferenceID   string            `gorm:"type:varchar(50);index" json:"reference_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// SettlementTask is the outbox row that completes a transaction once DueAt
// has passed. A sweep on startup picks up tasks left behind by a restart.
type SettlementTask struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	TransactionID string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_id"`
	DueAt         time.Time  `gorm:"index" json:"due_at"`
	DoneAt        *time.Time `gorm:"index" json:"done_at,omitempty"`
	Attempts      int        `gorm:"default:0" json:"attempts"`
	LastError     string     `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
