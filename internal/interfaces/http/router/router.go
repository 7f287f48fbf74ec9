// Package router mounts the order lifecycle API on a gin engine.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Route is a single endpoint. A route with Roles only admits actors
// holding one of them.
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Roles   []shared.Role
}

// Resource is a set of routes sharing a path prefix
type Resource struct {
	Prefix string
	Routes []Route
}

// Router collects resources and mounts them under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	logger     *zap.Logger
	middleware []gin.HandlerFunc
	resources  []Resource
}

type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix, "v1" by default
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

// WithLogger logs role rejections
func WithLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) { r.logger = logger }
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds middleware to the versioned API only; routes mounted directly on
// the engine are not affected
func (r *Router) Use(handlers ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, handlers...)
	return r
}

// Mount queues resources for Setup
func (r *Router) Mount(resources ...Resource) *Router {
	r.resources = append(r.resources, resources...)
	return r
}

// Setup registers every mounted route with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	api.Use(r.middleware...)

	roleCfg := middleware.RoleConfig{Logger: r.logger}
	for _, res := range r.resources {
		group := api.Group(res.Prefix)
		for _, route := range res.Routes {
			chain := make([]gin.HandlerFunc, 0, 2)
			if len(route.Roles) > 0 {
				chain = append(chain, middleware.RequireRoleWithConfig(roleCfg, route.Roles...))
			}
			group.Handle(route.Method, route.Path, append(chain, route.Handler)...)
		}
	}
}
