package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"retail-service/internal/entity"
	"retail-service/internal/events"
)

type findCall struct {
	filter, sort bson.D
	skip, limit  int64
}

type fakeSaleStore struct {
	mu        sync.Mutex
	sales     []entity.Sale
	distinct  map[string][]string
	ages      *entity.AgeRange
	finds     []findCall
	distincts int
	insertErr error
	// sorted makes Find honour the sort document like the real store.
	sorted bool
}

func (f *fakeSaleStore) Find(_ context.Context, filter, sort bson.D, skip, limit int64) ([]entity.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds = append(f.finds, findCall{filter: filter, sort: sort, skip: skip, limit: limit})

	rows := f.sales
	if f.sorted {
		rows = sortSales(f.sales, sort)
	}

	out := []entity.Sale{}
	for i := int(skip); i < len(rows); i++ {
		if limit > 0 && int64(len(out)) == limit {
			break
		}
		out = append(out, rows[i])
	}
	return out, nil
}

func sortSales(sales []entity.Sale, order bson.D) []entity.Sale {
	rows := append([]entity.Sale(nil), sales...)
	sort.SliceStable(rows, func(i, j int) bool {
		for _, key := range order {
			c := compareSaleField(rows[i], rows[j], key.Key)
			if c == 0 {
				continue
			}
			if key.Value.(int) < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return rows
}

func compareSaleField(a, b entity.Sale, field string) int {
	switch field {
	case "date":
		return a.Date.Compare(b.Date)
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "quantity":
		return a.Quantity - b.Quantity
	case "customerName":
		return strings.Compare(a.CustomerName, b.CustomerName)
	case "_id":
		return bytes.Compare(a.ID[:], b.ID[:])
	}
	return 0
}

func (f *fakeSaleStore) Count(context.Context, bson.D) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.sales)), nil
}

func (f *fakeSaleStore) InsertMany(_ context.Context, sales []entity.Sale) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	for _, s := range sales {
		s.ID = primitive.NewObjectID()
		f.sales = append(f.sales, s)
	}
	return len(sales), nil
}

func (f *fakeSaleStore) FindByID(_ context.Context, id primitive.ObjectID) (*entity.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sales {
		if f.sales[i].ID == id {
			s := f.sales[i]
			return &s, nil
		}
	}
	return nil, &entity.NotFoundError{Resource: "Order"}
}

func (f *fakeSaleStore) DeleteByIDs(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := f.sales[:0]
	var deleted int64
	for _, s := range f.sales {
		if drop[s.ID] {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	f.sales = kept
	return deleted, nil
}

func (f *fakeSaleStore) UpdateStatus(_ context.Context, id primitive.ObjectID, status string) (*entity.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sales {
		if f.sales[i].ID == id {
			before := f.sales[i]
			f.sales[i].OrderStatus = status
			return &before, nil
		}
	}
	return nil, &entity.NotFoundError{Resource: "Order"}
}

func (f *fakeSaleStore) Distinct(_ context.Context, field string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.distincts++
	return f.distinct[field], nil
}

func (f *fakeSaleStore) AgeRange(context.Context) (entity.AgeRange, bool, error) {
	if f.ages == nil {
		return entity.AgeRange{}, false, nil
	}
	return *f.ages, true, nil
}

func (f *fakeSaleStore) History(context.Context, entity.OrderHistoryFilter) ([]entity.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.Sale{}, f.sales...), nil
}

type fakeProductStore struct {
	mu         sync.Mutex
	products   map[string]*entity.Product
	consumeErr error
}

func newFakeProductStore(products ...entity.Product) *fakeProductStore {
	f := &fakeProductStore{products: map[string]*entity.Product{}}
	for _, p := range products {
		p := p
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		f.products[p.Name] = &p
	}
	return f
}

func (f *fakeProductStore) GetProducts(context.Context) ([]entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entity.Product{}
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeProductStore) LowStock(_ context.Context, threshold int) ([]entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entity.Product{}
	for _, p := range f.products {
		if p.Quantity <= threshold {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProductStore) GetProductByName(_ context.Context, name string) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[name]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, &entity.NotFoundError{Resource: "Product"}
}

func (f *fakeProductStore) CreateProduct(_ context.Context, product *entity.Product) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[product.Name]; ok {
		return nil, entity.Invalid("Product %q already exists", product.Name)
	}
	product.ID = primitive.NewObjectID()
	cp := *product
	f.products[product.Name] = &cp
	return product, nil
}

func (f *fakeProductStore) byID(id primitive.ObjectID) *entity.Product {
	for _, p := range f.products {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (f *fakeProductStore) UpdateProduct(_ context.Context, id primitive.ObjectID, input entity.ProductInput) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.byID(id)
	if p == nil {
		return nil, &entity.NotFoundError{Resource: "Product"}
	}
	if input.Quantity != nil {
		p.Quantity = *input.Quantity
	}
	if input.Price != nil {
		p.Price = *input.Price
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductStore) DeleteProduct(_ context.Context, id primitive.ObjectID) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.byID(id)
	if p == nil {
		return nil, &entity.NotFoundError{Resource: "Product"}
	}
	delete(f.products, p.Name)
	return p, nil
}

func (f *fakeProductStore) AdjustStock(_ context.Context, filter bson.D, delta int) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var p *entity.Product
	switch v := filter[0].Value.(type) {
	case primitive.ObjectID:
		p = f.byID(v)
	case string:
		p = f.products[v]
	}
	if p == nil {
		return nil, &entity.NotFoundError{Resource: "Product"}
	}
	p.Quantity = max(0, p.Quantity+delta)
	cp := *p
	return &cp, nil
}

func (f *fakeProductStore) ConsumeStock(_ context.Context, name string, quantity int) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	p, ok := f.products[name]
	if !ok {
		p = &entity.Product{
			ID:          primitive.NewObjectID(),
			Name:        name,
			Category:    entity.DefaultProductCategory,
			Description: entity.AutoCreatedDescription,
		}
		f.products[name] = p
	}
	p.Quantity = max(0, p.Quantity-quantity)
	cp := *p
	return &cp, nil
}

type fakeCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	claims  map[string]bool
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string][]byte{}, claims: map[string]bool{}}
}

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	for _, k := range keys {
		delete(c.values, k)
		delete(c.claims, k)
	}
	return nil
}

func (c *fakeCache) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claims[key] {
		return false, nil
	}
	c.claims[key] = true
	return true, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type fakeImportLog struct {
	runs []entity.ImportRun
}

func (l *fakeImportLog) Record(_ context.Context, run *entity.ImportRun) (*entity.ImportRun, error) {
	run.ID = int64(len(l.runs) + 1)
	l.runs = append(l.runs, *run)
	return run, nil
}

func (l *fakeImportLog) Recent(_ context.Context, limit int) ([]entity.ImportRun, error) {
	if limit > len(l.runs) {
		limit = len(l.runs)
	}
	return l.runs[:limit], nil
}

var errStore = errors.New("store unavailable")
