package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"retail-service/internal/entity"
)

type OrderHandler struct {
	errorResponder
	orders OrderService
}

func NewOrderHandler(orders OrderService, production bool) *OrderHandler {
	return &OrderHandler{errorResponder: errorResponder{production: production}, orders: orders}
}

func (h *OrderHandler) Register(g *echo.Group) {
	g.GET("/history", h.History)
	g.GET("/:id", h.GetOrder)
	g.PUT("/:id/status", h.UpdateStatus)
}

func (h *OrderHandler) History(c echo.Context) error {
	limit, err := intParam(c, "limit", 0)
	if err != nil {
		return h.fail(c, err, "Error fetching orders")
	}

	orders, err := h.orders.History(c.Request().Context(), entity.OrderHistoryFilter{
		SortOrder: c.QueryParam("sortOrder"),
		Status:    c.QueryParam("status"),
		Search:    c.QueryParam("search"),
		Limit:     limit,
	})
	if err != nil {
		return h.fail(c, err, "Error fetching orders")
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	order, err := h.orders.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err, "Error fetching order")
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	order, err := h.orders.UpdateStatus(c.Request().Context(), c.Param("id"), body.Status)
	if err != nil {
		return h.fail(c, err, "Error updating order")
	}
	return c.JSON(http.StatusOK, order)
}
