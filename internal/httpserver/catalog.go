package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/repo"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/service"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/transport"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/logging"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get")

	id, err := pathID(c, "id")
	if err != nil {
		l.Warn("get_product_failed", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	product, err := h.Svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("get_product_failed", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("get_product_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get product")
	}

	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.list")

	page, offset, limit := pageParams(c)
	filter := repo.ProductFilter{
		Category: c.QueryParam("category"),
		EcoTag:   c.QueryParam("eco_tag"),
		Query:    c.QueryParam("q"),
	}

	total, items, err := h.Svc.List(ctx, filter, offset, limit)
	if err != nil {
		l.Error("list_products_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list products")
	}

	return c.JSON(http.StatusOK, transport.NewPage(items, page, offset, limit, total))
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.SearchProducts(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			l.Warn("search_products_failed", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
		}
		l.Error("search_products_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}

	l.Info("search_products_success", "q", c.QueryParam("q"), "total", total)
	return c.JSON(http.StatusOK, transport.NewPage(items, page, offset, limit, total))
}

func (h *CatalogHTTP) Reindex(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.catalog_reindex")

	n, err := h.Svc.Reindex(ctx)
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			l.Warn("reindex_failed", "status", 409, "error", err)
			return echo.NewHTTPError(http.StatusConflict, "search index is not configured")
		}
		l.Error("reindex_failed", "status", 502, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "reindex failed")
	}

	l.Info("reindex_success", "indexed", n)
	return c.JSON(http.StatusOK, transport.ReindexResponse{Indexed: n})
}
