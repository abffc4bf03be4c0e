package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"retail-service/internal/entity"
)

type ProductHandler struct {
	errorResponder
	products ProductService
}

func NewProductHandler(products ProductService, production bool) *ProductHandler {
	return &ProductHandler{errorResponder: errorResponder{production: production}, products: products}
}

func (h *ProductHandler) Register(g *echo.Group) {
	g.GET("", h.GetProducts)
	g.POST("", h.CreateProduct)
	g.GET("/inventory", h.GetProducts)
	g.GET("/inventory/low", h.LowStock)
	g.POST("/inventory/adjust", h.AdjustStock)
	g.PUT("/:id", h.UpdateProduct)
	g.DELETE("/:id", h.DeleteProduct)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	products, err := h.products.GetProducts(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Error fetching products")
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) LowStock(c echo.Context) error {
	threshold, err := intParam(c, "threshold", entity.DefaultLowStockLevel)
	if err != nil {
		return h.fail(c, err, "Error fetching inventory")
	}

	products, err := h.products.LowStock(c.Request().Context(), threshold)
	if err != nil {
		return h.fail(c, err, "Error fetching inventory")
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	input := entity.ProductInput{}
	if err := c.Bind(&input); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	product, err := h.products.CreateProduct(c.Request().Context(), input)
	if err != nil {
		return h.fail(c, err, "Error creating product")
	}
	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	input := entity.ProductInput{}
	if err := c.Bind(&input); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	product, err := h.products.UpdateProduct(c.Request().Context(), c.Param("id"), input)
	if err != nil {
		return h.fail(c, err, "Error updating product")
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	product, err := h.products.DeleteProduct(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err, "Error deleting product")
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "Product deleted successfully", "product": product})
}

func (h *ProductHandler) AdjustStock(c echo.Context) error {
	var body struct {
		Updates []entity.StockAdjustment `json:"updates"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	results, err := h.products.AdjustStock(c.Request().Context(), body.Updates)
	if err != nil {
		return h.fail(c, err, "Error adjusting inventory")
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}
