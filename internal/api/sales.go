package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"retail-service/internal/entity"
)

type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

type SalesHandler struct {
	errorResponder
	sales     SalesService
	dashboard DashboardService
	orders    OrderService
	uploads   UploadConfig
}

func NewSalesHandler(sales SalesService, dashboard DashboardService, orders OrderService, uploads UploadConfig, production bool) *SalesHandler {
	return &SalesHandler{
		errorResponder: errorResponder{production: production},
		sales:          sales,
		dashboard:      dashboard,
		orders:         orders,
		uploads:        uploads,
	}
}

func (h *SalesHandler) Register(g *echo.Group) {
	g.GET("", h.ListSales)
	g.GET("/filters", h.FilterOptions)
	g.GET("/dashboard/stats", h.DashboardStats)
	g.GET("/trends", h.Trends)
	g.GET("/debug", h.Debug)
	g.GET("/export/csv", h.ExportCSV)
	g.GET("/uploads", h.Uploads)
	g.POST("/quick-order", h.QuickOrder)
	g.POST("/upload-csv", h.UploadCSV, middleware.BodyLimit(bodyLimit(h.uploads.MaxBytes)))
	g.DELETE("/bulk-delete", h.BulkDelete)
	g.DELETE("/:id", h.DeleteSale)
}

func (h *SalesHandler) ListSales(c echo.Context) error {
	f, err := parseFilters(c)
	if err != nil {
		return h.fail(c, err, "Failed to fetch sales data")
	}
	page, err := intParam(c, "page", 1)
	if err != nil {
		return h.fail(c, err, "Failed to fetch sales data")
	}
	limit, err := intParam(c, "limit", 10)
	if err != nil {
		return h.fail(c, err, "Failed to fetch sales data")
	}

	result, err := h.sales.List(c.Request().Context(), page, limit, f)
	if err != nil {
		return h.fail(c, err, "Failed to fetch sales data")
	}
	return c.JSON(http.StatusOK, result)
}

func (h *SalesHandler) FilterOptions(c echo.Context) error {
	opts, err := h.sales.FilterOptions(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Failed to fetch filter options")
	}
	return c.JSON(http.StatusOK, opts)
}

func (h *SalesHandler) DashboardStats(c echo.Context) error {
	stats, err := h.dashboard.Stats(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Failed to fetch dashboard stats")
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *SalesHandler) Trends(c echo.Context) error {
	from, err := optionalDate(c, "dateFrom")
	if err != nil {
		return h.fail(c, err, "Failed to fetch sales trends")
	}
	to, err := optionalDate(c, "dateTo")
	if err != nil {
		return h.fail(c, err, "Failed to fetch sales trends")
	}

	trends, err := h.dashboard.Trends(c.Request().Context(), c.QueryParam("timeframe"), from, to)
	if err != nil {
		return h.fail(c, err, "Failed to fetch sales trends")
	}
	return c.JSON(http.StatusOK, trends)
}

func (h *SalesHandler) Debug(c echo.Context) error {
	debug, err := h.sales.Debug(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Failed to fetch sales debug info")
	}
	return c.JSON(http.StatusOK, debug)
}

func (h *SalesHandler) ExportCSV(c echo.Context) error {
	f, err := parseFilters(c)
	if err != nil {
		return h.fail(c, err, "Failed to export sales data")
	}

	data, err := h.sales.Export(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, err, "Failed to export sales data")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="sales_export.csv"`)
	return c.Blob(http.StatusOK, "text/csv", data)
}

func (h *SalesHandler) Uploads(c echo.Context) error {
	limit, err := intParam(c, "limit", 0)
	if err != nil {
		return h.fail(c, err, "Failed to fetch uploads")
	}

	runs, err := h.sales.Uploads(c.Request().Context(), limit)
	if err != nil {
		return h.fail(c, err, "Failed to fetch uploads")
	}
	return c.JSON(http.StatusOK, runs)
}

func (h *SalesHandler) QuickOrder(c echo.Context) error {
	req := entity.QuickOrderRequest{}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	req.IdempotentKey = c.Request().Header.Get("Idempotent-Key")

	result, err := h.orders.QuickOrder(c.Request().Context(), &req)
	if err != nil {
		return h.fail(c, err, "Failed to create order")
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *SalesHandler) UploadCSV(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file uploaded")
	}
	if !isCSV(file) {
		return badRequest(c, "Only CSV files are allowed")
	}
	if h.uploads.MaxBytes > 0 && file.Size > h.uploads.MaxBytes {
		return badRequest(c, fmt.Sprintf("File too large, max %d bytes allowed", h.uploads.MaxBytes))
	}

	path, err := h.saveUpload(file)
	if err != nil {
		return h.fail(c, err, "Failed to upload CSV")
	}

	result, err := h.sales.ImportUpload(c.Request().Context(), path, file.Filename)
	if err != nil {
		status, body := h.errorBody(err, "Failed to upload CSV")
		body["success"] = false
		if result != nil {
			body["message"] = result.Message
			body["count"] = result.Count
			body["processed"] = result.Processed
			body["errors"] = result.Errors
			if len(result.NewFields) > 0 {
				body["newFields"] = result.NewFields
			}
		}
		if status == http.StatusInternalServerError {
			logger.Error().Err(err).Msgf("Error importing %s", file.Filename)
		}
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusCreated, result)
}

// saveUpload copies the uploaded file into the upload directory. The importer removes it when done.
func (h *SalesHandler) saveUpload(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(h.uploads.Dir, "upload-*.csv")
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("save upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("save upload: %w", err)
	}
	return dst.Name(), nil
}

func isCSV(file *multipart.FileHeader) bool {
	if strings.EqualFold(filepath.Ext(file.Filename), ".csv") {
		return true
	}
	return strings.HasPrefix(file.Header.Get(echo.HeaderContentType), "text/csv")
}

func (h *SalesHandler) BulkDelete(c echo.Context) error {
	var body struct {
		SaleIDs []string `json:"saleIds"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "Please provide sale IDs to delete")
	}

	result, err := h.sales.BulkDelete(c.Request().Context(), body.SaleIDs)
	if err != nil {
		return h.fail(c, err, "Failed to delete sales")
	}
	return c.JSON(http.StatusOK, result)
}

func (h *SalesHandler) DeleteSale(c echo.Context) error {
	if err := h.sales.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, err, "Failed to delete sale")
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Sale deleted successfully"})
}

func bodyLimit(maxBytes int64) string {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	// Leave room for the multipart envelope around the file.
	return fmt.Sprintf("%dK", maxBytes/1024+64)
}
