package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"retail-service/internal/entity"
	"retail-service/internal/events"
	"retail-service/internal/ingest"
)

// OrderService places quick orders and manages the status of existing ones.
type OrderService struct {
	sales      SaleStore
	products   *ProductService
	cache      Cache
	publisher  events.Publisher
	normalizer *ingest.Normalizer
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(sales SaleStore, products *ProductService, cache Cache, publisher events.Publisher) *OrderService {
	return &OrderService{
		sales:      sales,
		products:   products,
		cache:      cache,
		publisher:  publisher,
		normalizer: ingest.NewNormalizer(ingest.QuickOrderProfile),
	}
}

type reservation struct {
	Name     string
	Quantity int
	Error    error
}

// QuickOrder stores one sale per item under a shared order id, then takes the sold quantities off inventory.
// Inventory failures do not undo the order and are reported as warnings.
func (s *OrderService) QuickOrder(ctx context.Context, req *entity.QuickOrderRequest) (*entity.QuickOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, entity.Invalid("No items in order")
	}

	orderID := ingest.NewID("ORD")
	customerID := ingest.NewID("CUST")
	salespersonID := ingest.NewID("EMP")

	sales := make([]entity.Sale, 0, len(req.Items))
	totals := make(map[string]int)
	var names []string
	for i, item := range req.Items {
		sale, err := s.normalizer.Normalize(quickOrderRow(req, item, customerID, salespersonID, orderID), i+1)
		if err != nil {
			return nil, entity.Invalid("%s", err.Error())
		}
		if _, ok := totals[sale.ProductName]; !ok {
			names = append(names, sale.ProductName)
		}
		totals[sale.ProductName] += sale.Quantity
		sales = append(sales, sale)
	}

	idempotentKey := ""
	if req.IdempotentKey != "" {
		idempotentKey = "idempotent-key:" + req.IdempotentKey
		claimed, err := s.cache.Claim(ctx, idempotentKey, idempotencyTTL)
		if err != nil {
			logger.Error().Err(err).Msgf("Error validating idempotent key %s", req.IdempotentKey)
			idempotentKey = ""
		} else if !claimed {
			return nil, fmt.Errorf("%w: idempotent key already exists", entity.ErrDuplicate)
		}
	}

	inserted, err := s.sales.InsertMany(ctx, sales)
	if err != nil {
		logger.Error().Err(err).Msgf("Error creating order %s", orderID)
		// Nothing was stored, so a retry with the same key must be accepted.
		if idempotentKey != "" {
			if delErr := s.cache.Delete(ctx, idempotentKey); delErr != nil {
				logger.Warn().Err(delErr).Msgf("Error releasing idempotent key %s", req.IdempotentKey)
			}
		}
		return nil, err
	}

	// Reserve each product concurrently and collect the outcomes in order of first appearance.
	reservationCh := make(chan reservation, len(names))
	for _, name := range names {
		go func(name string, quantity int) {
			_, err := s.products.ReserveStock(ctx, name, quantity)
			reservationCh <- reservation{Name: name, Quantity: quantity, Error: err}
		}(name, totals[name])
	}

	failed := make(map[string]error)
	for range names {
		res := <-reservationCh
		if res.Error != nil {
			failed[res.Name] = res.Error
		}
	}

	var warnings []string
	for _, name := range names {
		if err, ok := failed[name]; ok {
			warnings = append(warnings, fmt.Sprintf("Inventory for %s was not updated: %v", name, err))
		}
	}

	EvictSalesAggregates(ctx, s.cache)
	s.publish(ctx, events.Event{Type: events.SaleCreated, ID: orderID, Count: inserted})

	logger.Info().Msgf("Order %s placed with %d items", orderID, inserted)
	return &entity.QuickOrderResult{
		Success:  true,
		Message:  fmt.Sprintf("Order placed successfully! %d items added.", inserted),
		Count:    inserted,
		OrderID:  orderID,
		Warnings: warnings,
	}, nil
}

func quickOrderRow(req *entity.QuickOrderRequest, item entity.QuickOrderItem, customerID, salespersonID, orderID string) ingest.Row {
	quantity := item.Quantity.String()
	if ingest.ParseNumber(quantity, 0) < 1 {
		quantity = "1"
	}

	return ingest.Row{
		"customerId":         customerID,
		"customerName":       req.CustomerName,
		"phoneNumber":        req.PhoneNumber,
		"email":              req.Email,
		"gender":             req.Gender,
		"age":                req.Age.String(),
		"customerRegion":     req.CustomerRegion,
		"productName":        item.ProductName,
		"productCategory":    item.ProductCategory,
		"quantity":           quantity,
		"pricePerUnit":       item.PricePerUnit.String(),
		"discountPercentage": item.DiscountPercentage.String(),
		"paymentMethod":      req.PaymentMethod,
		"storeId":            "STORE-001",
		"salespersonId":      salespersonID,
		"orderId":            orderID,
	}
}

func (s *OrderService) History(ctx context.Context, f entity.OrderHistoryFilter) ([]entity.Sale, error) {
	sales, err := s.sales.History(ctx, f)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting order history")
		return nil, err
	}
	return sales, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*entity.Sale, error) {
	oid, err := parseObjectID(id, "order")
	if err != nil {
		return nil, err
	}
	return s.sales.FindByID(ctx, oid)
}

// UpdateStatus moves an order to one of entity.OrderStatuses. The status is matched case-insensitively and
// stored lowercase.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (*entity.Sale, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !slices.Contains(entity.OrderStatuses, status) {
		return nil, entity.Invalid("Invalid status")
	}

	oid, err := parseObjectID(id, "order")
	if err != nil {
		return nil, err
	}

	previous, err := s.sales.UpdateStatus(ctx, oid, status)
	if err != nil {
		logger.Error().Err(err).Msgf("Error updating order %s to %s", id, status)
		return nil, err
	}

	updated := *previous
	updated.OrderStatus = status
	updated.UpdatedAt = time.Now().UTC()

	EvictSalesAggregates(ctx, s.cache)
	s.publish(ctx, events.Event{
		Type:           events.StatusUpdated,
		ID:             id,
		Sale:           &updated,
		Status:         status,
		PreviousStatus: previous.OrderStatus,
	})

	return &updated, nil
}

func (s *OrderService) publish(ctx context.Context, event events.Event) {
	event.At = time.Now().UTC()
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Error().Err(err).Msgf("Error publishing %s", event.Key())
	}
}
