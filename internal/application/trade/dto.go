package trade

import (
	"time"

	"github.com/google/uuid"
	financeapp "github.com/orderflow/backend/internal/application/finance"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// ==================== Order DTOs ====================

// CreateOrderRequest represents a request to create a sale or purchase order
type CreateOrderRequest struct {
	Code           string                 `json:"code" binding:"required,min=1,max=50"`
	CounterpartyID uuid.UUID              `json:"counterparty_id" binding:"required"`
	Items          []CreateOrderItemInput `json:"items" binding:"required,min=1,dive"`
	Notes          string                 `json:"notes" binding:"max=2000"`
}

// CreateOrderItemInput represents a line in the create order request
type CreateOrderItemInput struct {
	ItemID    uuid.UUID       `json:"item_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"decimal_gt0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID                   uuid.UUID           `json:"id"`
	Type                 string              `json:"type"`
	Code                 string              `json:"code"`
	CounterpartyID       uuid.UUID           `json:"counterparty_id"`
	GrandTotal           decimal.Decimal     `json:"grand_total"`
	PaidAmount           decimal.Decimal     `json:"paid_amount"`
	Balance              decimal.Decimal     `json:"balance"`
	Status               string              `json:"status"`
	InventoryStatus      string              `json:"inventory_status"`
	InventoryAppliedAt   *time.Time          `json:"inventory_applied_at,omitempty"`
	InventoryRestoredAt  *time.Time          `json:"inventory_restored_at,omitempty"`
	PostDeliveryAction   *string             `json:"post_delivery_action,omitempty"`
	PostDeliveryActionAt *time.Time          `json:"post_delivery_action_at,omitempty"`
	Items                []OrderItemResponse `json:"items"`
	Version              int                 `json:"version"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ItemID    uuid.UUID       `json:"item_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
	IsDamaged bool            `json:"is_damaged"`
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(order *trade.Order) OrderResponse {
	resp := OrderResponse{
		ID:                   order.ID,
		Type:                 order.Type.String(),
		Code:                 order.Code,
		CounterpartyID:       order.CounterpartyID,
		GrandTotal:           order.GrandTotal,
		PaidAmount:           order.PaidAmount,
		Balance:              order.Balance(),
		Status:               order.Status.String(),
		InventoryStatus:      string(order.InventoryStatus),
		InventoryAppliedAt:   order.InventoryAppliedAt,
		InventoryRestoredAt:  order.InventoryRestoredAt,
		PostDeliveryActionAt: order.PostDeliveryActionAt,
		Items:                make([]OrderItemResponse, len(order.Items)),
		Version:              order.Version,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
	if order.PostDeliveryAction != nil {
		action := order.PostDeliveryAction.String()
		resp.PostDeliveryAction = &action
	}
	for i, item := range order.Items {
		resp.Items[i] = OrderItemResponse{
			ID:        item.ID,
			ItemID:    item.ItemID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Amount:    item.Amount(),
			IsDamaged: item.IsDamaged,
		}
	}
	return resp
}

// ==================== Status Transition DTOs ====================

// TransitionEvidence is the raw evidence submitted with a transition.
// Uploaded bytes are stored by the service and replaced by object keys.
type TransitionEvidence struct {
	Notes                string
	ProofImage           []byte
	ProofContentType     string
	Signature            []byte
	SignatureContentType string
	Latitude             *float64
	Longitude            *float64
}

// TransitionCommand asks for an order to move to a new status
type TransitionCommand struct {
	TenantID  uuid.UUID
	OrderID   uuid.UUID
	OrderType trade.OrderType
	ToStatus  trade.OrderStatus
	Evidence  TransitionEvidence
	Actor     shared.Actor
	// RestoreStock puts the delivered quantities back after a post-delivery
	// cancel or return, skipping DamagedItemIDs
	RestoreStock   bool
	DamagedItemIDs []uuid.UUID
}

// TransitionResult is returned after a transition is committed
type TransitionResult struct {
	Order           OrderResponse               `json:"order"`
	PreviousStatus  string                      `json:"previous_status"`
	ReversalSummary *financeapp.ReversalSummary `json:"reversal_summary,omitempty"`
	// WarningCode is REVERSAL_PARTIAL_FAILURE when the status changed but some payments could not be reversed
	WarningCode string `json:"warning_code,omitempty"`
}

// ==================== Status History DTOs ====================

// StatusHistoryResponse represents one status change in API responses
type StatusHistoryResponse struct {
	ID             uuid.UUID  `json:"id"`
	PreviousStatus *string    `json:"previous_status"`
	NewStatus      string     `json:"new_status"`
	Notes          string     `json:"notes,omitempty"`
	ProofImageURL  string     `json:"proof_image_url,omitempty"`
	SignatureURL   string     `json:"signature_url,omitempty"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	ChangedBy      *uuid.UUID `json:"changed_by,omitempty"`
	ChangedByName  string     `json:"changed_by_name"`
	ChangedAt      time.Time  `json:"changed_at"`
}
