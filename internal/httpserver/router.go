package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/metrics"
	middleware "github.com/CODEDESTROYER009/The-Green-Shop/pkg/middleware/auth"
)

type Deps struct {
	Catalog  *CatalogHTTP
	Cart     *CartHTTP
	Checkout *CheckoutHTTP
	Orders   *OrderHTTP
	Impact   *ImpactHTTP

	JWTSecret  []byte
	AuthClient middleware.Refresher
	Metrics    *metrics.ServerMetrics

	// Ready backs /health/ready. Nil means always ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.AuthClient)

	v1 := e.Group("/api/v1")

	products := v1.Group("/products")
	products.GET("", d.Catalog.ListProducts)
	products.GET("/search", d.Catalog.SearchProducts)
	products.GET("/:id", d.Catalog.GetProduct)

	cart := v1.Group("/cart", authMW.RequireAuth)
	cart.GET("", d.Cart.GetCart)
	cart.POST("", d.Cart.AddToCart)
	cart.DELETE("", d.Cart.ClearCart)
	cart.PATCH("/items/:id", d.Cart.UpdateItem)
	cart.DELETE("/items/:id", d.Cart.RemoveItem)

	v1.POST("/checkout", d.Checkout.Create, authMW.RequireAuth)

	orders := v1.Group("/orders", authMW.RequireAuth)
	orders.GET("", d.Orders.ListOrders)
	orders.GET("/:id", d.Orders.GetOrder)

	v1.GET("/impact", d.Impact.Dashboard, authMW.RequireAuth)

	admin := v1.Group("/admin", authMW.RequireAdmin)
	admin.POST("/users/:id/impact", d.Impact.Provision)
	admin.POST("/catalog/reindex", d.Catalog.Reindex)
}
