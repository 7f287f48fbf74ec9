package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	financeapp "github.com/orderflow/backend/internal/application/finance"
	inventoryapp "github.com/orderflow/backend/internal/application/inventory"
	tradeapp "github.com/orderflow/backend/internal/application/trade"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/orderflow/backend/internal/interfaces/http/dto"
	"github.com/orderflow/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

var (
	testTenantID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testActor    = shared.Actor{ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Name: "Dana", Role: shared.RoleManager}
)

// newTestEngine returns an engine whose requests carry an authenticated tenant and actor
func newTestEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set(middleware.TenantKey, testTenantID)
		c.Set(middleware.ActorKey, testActor)
		c.Next()
	})
	return engine
}

func doJSON(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

type mockOrders struct{ mock.Mock }

func (m *mockOrders) CreateOrder(ctx context.Context, tenantID uuid.UUID, orderType trade.OrderType, req tradeapp.CreateOrderRequest, actor shared.Actor) (*tradeapp.OrderResponse, error) {
	args := m.Called(ctx, tenantID, orderType, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.OrderResponse), args.Error(1)
}

func (m *mockOrders) GetOrder(ctx context.Context, tenantID uuid.UUID, orderType trade.OrderType, orderID uuid.UUID) (*tradeapp.OrderResponse, error) {
	args := m.Called(ctx, tenantID, orderType, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.OrderResponse), args.Error(1)
}

type mockStatuses struct{ mock.Mock }

func (m *mockStatuses) RequestTransition(ctx context.Context, cmd tradeapp.TransitionCommand) (*tradeapp.TransitionResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.TransitionResult), args.Error(1)
}

func (m *mockStatuses) GetStatusHistory(ctx context.Context, tenantID uuid.UUID, orderType trade.OrderType, orderID uuid.UUID) ([]tradeapp.StatusHistoryResponse, error) {
	args := m.Called(ctx, tenantID, orderType, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tradeapp.StatusHistoryResponse), args.Error(1)
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) CollectPayment(ctx context.Context, cmd financeapp.CollectPaymentCommand) (*financeapp.CollectPaymentResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.CollectPaymentResult), args.Error(1)
}

func (m *mockPayments) GetPaymentHistory(ctx context.Context, tenantID, orderID uuid.UUID) (*financeapp.PaymentHistoryResponse, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.PaymentHistoryResponse), args.Error(1)
}

type mockReversals struct{ mock.Mock }

func (m *mockReversals) ReversePayment(ctx context.Context, tenantID, paymentID uuid.UUID, reason string, actor shared.Actor) (*financeapp.ReversalEntry, error) {
	args := m.Called(ctx, tenantID, paymentID, reason, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.ReversalEntry), args.Error(1)
}

func (m *mockReversals) FlagPayment(ctx context.Context, tenantID, paymentID uuid.UUID, reason string, actor shared.Actor) (*financeapp.ReversalLogResponse, error) {
	args := m.Called(ctx, tenantID, paymentID, reason, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.ReversalLogResponse), args.Error(1)
}

func (m *mockReversals) CompleteReview(ctx context.Context, tenantID, logID uuid.UUID, resolution string, actor shared.Actor) (*financeapp.ReversalLogResponse, error) {
	args := m.Called(ctx, tenantID, logID, resolution, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.ReversalLogResponse), args.Error(1)
}

func (m *mockReversals) ListReversalLogs(ctx context.Context, tenantID, orderID uuid.UUID) ([]financeapp.ReversalLogResponse, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]financeapp.ReversalLogResponse), args.Error(1)
}

type mockInventory struct{ mock.Mock }

func (m *mockInventory) CreateItem(ctx context.Context, tenantID uuid.UUID, req inventoryapp.CreateItemRequest) (*inventoryapp.ItemResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.ItemResponse), args.Error(1)
}

func (m *mockInventory) GetItem(ctx context.Context, tenantID, id uuid.UUID) (*inventoryapp.ItemResponse, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.ItemResponse), args.Error(1)
}

func (m *mockInventory) ListOrderMovements(ctx context.Context, tenantID, orderID uuid.UUID) ([]inventoryapp.MovementResponse, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventoryapp.MovementResponse), args.Error(1)
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}
