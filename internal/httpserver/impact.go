package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/service"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/logging"
)

type ImpactHTTP struct {
	Svc *service.ImpactService
}

func (h *ImpactHTTP) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "impact.dashboard")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("impact_dashboard_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	stats, err := h.Svc.Dashboard(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("impact_dashboard_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "impact stats not set up for this account")
		}
		l.Error("impact_dashboard_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, stats)
}

// Provision is the account-creation hook that creates a user's stats row.
func (h *ImpactHTTP) Provision(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.impact_provision")

	userID, err := pathID(c, "id")
	if err != nil {
		l.Warn("impact_provision_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	stats, err := h.Svc.Provision(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			l.Warn("impact_provision_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
		}
		l.Error("impact_provision_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("impact_provision_success", "user_id", userID)
	return c.JSON(http.StatusCreated, stats)
}
