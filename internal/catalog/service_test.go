package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/money"
)

type fakeSource struct {
	products  []Product
	listCalls int
	getCalls  int
}

func (f *fakeSource) ListProducts(context.Context) ([]Product, error) {
	f.listCalls++
	return f.products, nil
}

func (f *fakeSource) GetProduct(_ context.Context, id int64) (Product, error) {
	f.getCalls++
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrProductNotFound
}

func sampleProducts() []Product {
	return []Product{
		{ID: 1, SKU: "COF-001", Name: "Iced Latte", UnitPrice: money.MustParse("65.00"), Barcode: "8850001", IsActive: true},
		{ID: 2, SKU: "TEA-002", Name: "Thai Tea", UnitPrice: money.MustParse("45.00"), Barcode: "8850002", IsActive: true},
		{ID: 3, SKU: "COF-003", Name: "Mocha", UnitPrice: money.MustParse("70.00"), IsActive: false},
	}
}

func newRedisCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute, "catalog:")
}

func TestServiceGetCachesProduct(t *testing.T) {
	src := &fakeSource{products: sampleProducts()}
	svc, err := NewService(ServiceConfig{Source: src, Cache: newRedisCache(t)})
	require.NoError(t, err)

	p, err := svc.Get(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, "Thai Tea", p.Name)

	p, err = svc.Get(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, money.MustParse("45.00"), p.UnitPrice)
	require.Equal(t, 1, src.getCalls)
}

func TestServiceGetNotFound(t *testing.T) {
	svc, err := NewService(ServiceConfig{Source: &fakeSource{}})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 9)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestServiceSearchFiltersActiveProducts(t *testing.T) {
	src := &fakeSource{products: sampleProducts()}
	svc, err := NewService(ServiceConfig{Source: src, Cache: newRedisCache(t)})
	require.NoError(t, err)

	got, err := svc.Search(context.Background(), "cof")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(1), got[0].ID)

	got, err = svc.Search(context.Background(), "8850002")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "TEA-002", got[0].SKU)

	got, err = svc.Search(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 1, src.listCalls)
}

func TestServiceRequiresSource(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	require.Error(t, err)
}

func TestHandlerGetProduct(t *testing.T) {
	svc, err := NewService(ServiceConfig{Source: &fakeSource{products: sampleProducts()}})
	require.NoError(t, err)
	h := &Handler{Svc: svc}

	r := chi.NewRouter()
	r.Get("/products/{id}", h.Get)
	r.Get("/products", h.Search)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"unitPrice":65.00`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/42", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "PRODUCT_NOT_FOUND")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products?q=latte", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Iced Latte")
}
