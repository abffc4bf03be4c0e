package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"retail-service/internal/entity"
	"retail-service/internal/ingest"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "api").Logger()

type SalesService interface {
	List(ctx context.Context, page, limit int, f entity.FilterSpec) (*entity.SalesPage, error)
	Export(ctx context.Context, f entity.FilterSpec) ([]byte, error)
	FilterOptions(ctx context.Context) (*entity.FilterOptions, error)
	ImportUpload(ctx context.Context, path, fileName string) (*entity.UploadResult, error)
	BulkDelete(ctx context.Context, ids []string) (*entity.BulkDeleteResult, error)
	Delete(ctx context.Context, id string) error
	Uploads(ctx context.Context, limit int) ([]entity.ImportRun, error)
	Debug(ctx context.Context) (*entity.SalesDebug, error)
}

type DashboardService interface {
	Stats(ctx context.Context) (*entity.DashboardStats, error)
	Trends(ctx context.Context, timeframe string, dateFrom, dateTo *time.Time) (*entity.Trends, error)
}

type OrderService interface {
	QuickOrder(ctx context.Context, req *entity.QuickOrderRequest) (*entity.QuickOrderResult, error)
	History(ctx context.Context, f entity.OrderHistoryFilter) ([]entity.Sale, error)
	GetOrder(ctx context.Context, id string) (*entity.Sale, error)
	UpdateStatus(ctx context.Context, id, status string) (*entity.Sale, error)
}

type ProductService interface {
	GetProducts(ctx context.Context) ([]entity.Product, error)
	LowStock(ctx context.Context, threshold int) ([]entity.Product, error)
	CreateProduct(ctx context.Context, input entity.ProductInput) (*entity.Product, error)
	UpdateProduct(ctx context.Context, id string, input entity.ProductInput) (*entity.Product, error)
	DeleteProduct(ctx context.Context, id string) (*entity.Product, error)
	AdjustStock(ctx context.Context, items []entity.StockAdjustment) ([]entity.StockAdjustmentResult, error)
}

// errorResponder turns service errors into JSON responses. Internal details are only exposed outside production.
type errorResponder struct {
	production bool
}

// fail writes err with the status its kind maps to. fallback is the message used for unexpected failures.
func (r errorResponder) fail(c echo.Context, err error, fallback string) error {
	status, body := r.errorBody(err, fallback)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Path()).Msg(fallback)
	}
	return c.JSON(status, body)
}

func (r errorResponder) errorBody(err error, fallback string) (int, map[string]any) {
	var limitErr *ingest.LimitExceededError
	status, msg := http.StatusInternalServerError, fallback

	switch {
	case errors.Is(err, entity.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, entity.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.As(err, &limitErr):
		status, msg = http.StatusBadRequest, limitErr.Error()
	case errors.Is(err, ingest.ErrNoData):
		status, msg = http.StatusBadRequest, "No valid data found in CSV"
	case errors.Is(err, entity.ErrDuplicate):
		status, msg = http.StatusConflict, err.Error()
	}

	body := map[string]any{"error": msg, "message": msg}
	if status == http.StatusInternalServerError && !r.production {
		body["details"] = err.Error()
	}
	return status, body
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg, "message": msg})
}
