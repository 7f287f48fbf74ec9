package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var financeModelLogger = zap.L().Named("finance.models")

// PaymentTransactionModel is the persistence model for payments and their reversals
type PaymentTransactionModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PaymentTypeID     *uuid.UUID      `gorm:"type:uuid"`
	TransactionDate   time.Time       `gorm:"not null;index"`
	Note              string          `gorm:"type:text"`
	ReferenceNumber   string          `gorm:"type:varchar(100)"`
	IsReversal        bool            `gorm:"not null;default:false"`
	OriginalPaymentID *uuid.UUID      `gorm:"type:uuid;index"`
	ReversalReason    string          `gorm:"type:varchar(50)"`
	ReversedAt        *time.Time
	ReversedBy        *uuid.UUID            `gorm:"type:uuid"`
	PaymentStatus     finance.PaymentStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	CreatedBy         *uuid.UUID            `gorm:"type:uuid"`
	CreatedAt         time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentTransactionModel) TableName() string {
	return "payment_transactions"
}

// ToDomain converts the persistence model to a domain PaymentTransaction
func (m *PaymentTransactionModel) ToDomain() *finance.PaymentTransaction {
	return &finance.PaymentTransaction{
		ID:                m.ID,
		TenantID:          m.TenantID,
		OrderID:           m.OrderID,
		Amount:            m.Amount,
		PaymentTypeID:     m.PaymentTypeID,
		TransactionDate:   m.TransactionDate,
		Note:              m.Note,
		ReferenceNumber:   m.ReferenceNumber,
		IsReversal:        m.IsReversal,
		OriginalPaymentID: m.OriginalPaymentID,
		ReversalReason:    m.ReversalReason,
		ReversedAt:        m.ReversedAt,
		ReversedBy:        m.ReversedBy,
		PaymentStatus:     m.PaymentStatus,
		CreatedBy:         m.CreatedBy,
		CreatedAt:         m.CreatedAt,
	}
}

// PaymentTransactionModelFromDomain creates a persistence model from a domain PaymentTransaction
func PaymentTransactionModelFromDomain(p *finance.PaymentTransaction) *PaymentTransactionModel {
	return &PaymentTransactionModel{
		ID:                p.ID,
		TenantID:          p.TenantID,
		OrderID:           p.OrderID,
		Amount:            p.Amount,
		PaymentTypeID:     p.PaymentTypeID,
		TransactionDate:   p.TransactionDate,
		Note:              p.Note,
		ReferenceNumber:   p.ReferenceNumber,
		IsReversal:        p.IsReversal,
		OriginalPaymentID: p.OriginalPaymentID,
		ReversalReason:    p.ReversalReason,
		ReversedAt:        p.ReversedAt,
		ReversedBy:        p.ReversedBy,
		PaymentStatus:     p.PaymentStatus,
		CreatedBy:         p.CreatedBy,
		CreatedAt:         p.CreatedAt,
	}
}

// PaymentReversalLogModel is the persistence model for the reversal audit log
type PaymentReversalLogModel struct {
	ID                  uuid.UUID          `gorm:"type:uuid;primary_key"`
	TenantID            uuid.UUID          `gorm:"type:uuid;not null;index"`
	OrderID             uuid.UUID          `gorm:"type:uuid;not null;index"`
	OriginalPaymentID   *uuid.UUID         `gorm:"type:uuid;index"`
	ReversalPaymentID   *uuid.UUID         `gorm:"type:uuid"`
	ActionType          finance.ActionType `gorm:"type:varchar(30);not null"`
	PreviousOrderStatus string             `gorm:"type:varchar(20)"`
	NewOrderStatus      string             `gorm:"type:varchar(20)"`
	AmountInvolved      decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	ActionReason        string             `gorm:"type:text"`
	ActionDetailsJSON   string             `gorm:"column:action_details;type:jsonb"`
	PerformedBy         *uuid.UUID         `gorm:"type:uuid"`
	PerformedAt         time.Time          `gorm:"not null;index"`
	Status              finance.LogStatus  `gorm:"type:varchar(20);not null;index"`
	ErrorMessage        string             `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentReversalLogModel) TableName() string {
	return "payment_reversal_logs"
}

// ToDomain converts the persistence model to a domain PaymentReversalLog
func (m *PaymentReversalLogModel) ToDomain() *finance.PaymentReversalLog {
	details := make(map[string]any)
	if m.ActionDetailsJSON != "" {
		if err := json.Unmarshal([]byte(m.ActionDetailsJSON), &details); err != nil {
			financeModelLogger.Warn("failed to parse reversal log details",
				zap.String("log_id", m.ID.String()), zap.Error(err))
		}
	}
	return &finance.PaymentReversalLog{
		ID:                  m.ID,
		TenantID:            m.TenantID,
		OrderID:             m.OrderID,
		OriginalPaymentID:   m.OriginalPaymentID,
		ReversalPaymentID:   m.ReversalPaymentID,
		ActionType:          m.ActionType,
		PreviousOrderStatus: m.PreviousOrderStatus,
		NewOrderStatus:      m.NewOrderStatus,
		AmountInvolved:      m.AmountInvolved,
		ActionReason:        m.ActionReason,
		ActionDetails:       details,
		PerformedBy:         m.PerformedBy,
		PerformedAt:         m.PerformedAt,
		Status:              m.Status,
		ErrorMessage:        m.ErrorMessage,
	}
}

// PaymentReversalLogModelFromDomain creates a persistence model from a domain PaymentReversalLog
func PaymentReversalLogModelFromDomain(l *finance.PaymentReversalLog) *PaymentReversalLogModel {
	m := &PaymentReversalLogModel{
		ID:                  l.ID,
		TenantID:            l.TenantID,
		OrderID:             l.OrderID,
		OriginalPaymentID:   l.OriginalPaymentID,
		ReversalPaymentID:   l.ReversalPaymentID,
		ActionType:          l.ActionType,
		PreviousOrderStatus: l.PreviousOrderStatus,
		NewOrderStatus:      l.NewOrderStatus,
		AmountInvolved:      l.AmountInvolved,
		ActionReason:        l.ActionReason,
		ActionDetailsJSON:   "{}",
		PerformedBy:         l.PerformedBy,
		PerformedAt:         l.PerformedAt,
		Status:              l.Status,
		ErrorMessage:        l.ErrorMessage,
	}
	if len(l.ActionDetails) > 0 {
		if b, err := json.Marshal(l.ActionDetails); err == nil {
			m.ActionDetailsJSON = string(b)
		}
	}
	return m
}
