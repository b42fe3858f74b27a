package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
)

// ErrProductNotFound is returned when the backend has no product with the requested id.
var ErrProductNotFound = errors.New("product not found")

// Source is the upstream product catalog.
type Source interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
}

// Service resolves products for the register, caching upstream responses.
type Service struct {
	source Source
	cache  *Cache
	logger zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Source Source
	Cache  *Cache
	Logger *zerolog.Logger
}

const listCacheKey = "products:all"

// NewService validates cfg and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Source == nil {
		return nil, errors.New("catalog: product source is required")
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Service{source: cfg.Source, cache: cfg.Cache, logger: logger}, nil
}

// Get returns the product with the given id.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("product id %d: %w", id, ErrProductNotFound)
	}
	key := productCacheKey(id)
	var cached Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	} else if ok {
		return cached, nil
	}
	product, err := s.source.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := s.cache.SetJSON(ctx, key, product); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return product, nil
}

// Search lists active products matching term by name, SKU or barcode. An empty
// term returns every active product.
func (s *Service) Search(ctx context.Context, term string) ([]Product, error) {
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(all))
	for _, p := range all {
		if !p.IsActive {
			continue
		}
		if p.Matches(term) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) list(ctx context.Context) ([]Product, error) {
	var cached []Product
	if ok, err := s.cache.GetJSON(ctx, listCacheKey, &cached); err != nil {
		s.logger.Warn().Err(err).Str("key", listCacheKey).Msg("catalog cache read failed")
	} else if ok {
		return cached, nil
	}
	products, err := s.source.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if err := s.cache.SetJSON(ctx, listCacheKey, products); err != nil {
		s.logger.Warn().Err(err).Str("key", listCacheKey).Msg("catalog cache write failed")
	}
	return products, nil
}

func productCacheKey(id int64) string {
	return "product:" + strconv.FormatInt(id, 10)
}
