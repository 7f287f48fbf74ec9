package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/interfaces/http/handler"
)

// APIHandlers are the handlers mounted under /api/v1
type APIHandlers struct {
	Orders    *handler.OrderHandler
	Payments  *handler.PaymentHandler
	Inventory *handler.InventoryHandler
	Health    gin.HandlerFunc
}

var supervisors = []shared.Role{shared.RoleAdmin, shared.RoleManager}

// APIResources lists the order lifecycle routes. Manual reversals, flags and
// review completion are restricted to admins and managers.
func APIResources(h APIHandlers) []Resource {
	resources := []Resource{
		{Prefix: "/orders", Routes: []Route{
			{Method: http.MethodPost, Path: "/:type", Handler: h.Orders.CreateOrder},
			{Method: http.MethodGet, Path: "/:type/:id", Handler: h.Orders.GetOrder},
			{Method: http.MethodPost, Path: "/:type/:id/status", Handler: h.Orders.RequestStatusTransition},
			{Method: http.MethodGet, Path: "/:type/:id/status-history", Handler: h.Orders.GetStatusHistory},
			{Method: http.MethodPost, Path: "/:type/:id/payments", Handler: h.Payments.CollectPayment},
			{Method: http.MethodGet, Path: "/:type/:id/payments", Handler: h.Payments.GetPaymentHistory},
			{Method: http.MethodGet, Path: "/:type/:id/reversal-logs", Handler: h.Payments.ListReversalLogs},
			{Method: http.MethodGet, Path: "/:type/:id/inventory-movements", Handler: h.Inventory.ListOrderMovements},
		}},
		{Prefix: "/payments", Routes: []Route{
			{Method: http.MethodPost, Path: "/:id/reverse", Handler: h.Payments.ReversePayment, Roles: supervisors},
			{Method: http.MethodPost, Path: "/:id/flag", Handler: h.Payments.FlagPayment, Roles: supervisors},
		}},
		{Prefix: "/reversal-logs", Routes: []Route{
			{Method: http.MethodPost, Path: "/:id/complete-review", Handler: h.Payments.CompleteReview, Roles: supervisors},
		}},
		{Prefix: "/inventory", Routes: []Route{
			{Method: http.MethodPost, Path: "/items", Handler: h.Inventory.CreateItem},
			{Method: http.MethodGet, Path: "/items/:id", Handler: h.Inventory.GetItem},
		}},
	}
	if h.Health != nil {
		resources = append(resources, Resource{Prefix: "/health", Routes: []Route{
			{Method: http.MethodGet, Path: "", Handler: h.Health},
		}})
	}
	return resources
}

// RegisterAPI mounts APIResources and registers them with the engine
func RegisterAPI(r *Router, h APIHandlers) {
	r.Mount(APIResources(h)...).Setup()
}
