package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/zsiskos/roadstartire/internal/cache"
	"github.com/zsiskos/roadstartire/internal/domain"
	"github.com/zsiskos/roadstartire/internal/repository"
)

type CatalogService struct {
	repo  repository.RepoInterface
	cache cache.ProductCache
	now   func() time.Time
}

func NewCatalogService(repo repository.RepoInterface, cache cache.ProductCache) *CatalogService {
	return &CatalogService{repo: repo, cache: cache, now: time.Now}
}

func (s *CatalogService) CreateProduct(ctx context.Context, sku string, spec domain.TireSpec) (*domain.CatalogItem, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, invalidInput("sku is required")
	}
	if err := validateSpec(&spec); err != nil {
		return nil, err
	}

	item := &domain.CatalogItem{Images: []domain.Image{}}
	errTx := s.repo.WithTx(ctx, func(q repository.Queries) error {
		item.Product = domain.Product{SKU: sku}
		if err := q.CreateProduct(ctx, &item.Product); err != nil {
			return err
		}
		item.Current = domain.Tire{
			ProductID:   item.Product.ID,
			EffectiveAt: s.now(),
			TireSpec:    spec,
		}
		if err := q.CreateTire(ctx, &item.Current); err != nil {
			return err
		}
		if spec.TreadID != nil {
			tread, err := q.GetTread(ctx, *spec.TreadID)
			if err != nil {
				return err
			}
			item.Tread = tread
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	item.Stock = domain.StockLevel{ProductID: item.Product.ID}
	s.invalidate(item.Product.ID)
	return item, nil
}

// ReviseProduct records a new dated revision. A zero effectiveAt means now.
func (s *CatalogService) ReviseProduct(ctx context.Context, productID int64, spec domain.TireSpec, effectiveAt time.Time) (*domain.Tire, error) {
	if err := validateSpec(&spec); err != nil {
		return nil, err
	}
	if effectiveAt.IsZero() {
		effectiveAt = s.now()
	}

	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	tire := &domain.Tire{ProductID: productID, EffectiveAt: effectiveAt, TireSpec: spec}
	if err := s.repo.CreateTire(ctx, tire); err != nil {
		return nil, err
	}

	s.invalidate(productID)
	return tire, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, productID int64) (*domain.CatalogItem, error) {
	item, err := s.cache.Get(ctx, productID)
	switch {
	case err == nil:
		return item, nil
	case errors.Is(err, cache.ErrCachedNotFound):
		return nil, repository.ErrProductNotFound
	case !errors.Is(err, cache.ErrCacheMiss):
		log.Printf("product cache get error: %v", err)
	}

	item, err = s.loadItem(ctx, productID)
	if errors.Is(err, repository.ErrProductNotFound) {
		if errSet := s.cache.SetNotFound(ctx, productID); errSet != nil {
			log.Printf("failed to cache notfound: %v", errSet)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if errSet := s.cache.Set(ctx, item); errSet != nil {
		log.Printf("failed to cache product: %v", errSet)
	}
	return item, nil
}

func (s *CatalogService) loadItem(ctx context.Context, productID int64) (*domain.CatalogItem, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	current, err := s.repo.CurrentTire(ctx, productID, now)
	if errors.Is(err, repository.ErrNoCurrentRevision) {
		return nil, ErrProductNotAvailable
	}
	if err != nil {
		return nil, err
	}

	item := &domain.CatalogItem{Product: *product, Current: *current}
	revisions, err := s.repo.ListRevisions(ctx, productID)
	if err != nil {
		return nil, err
	}
	if next, ok := domain.NextRevisionAt(revisions, now); ok {
		item.NextRevisionAt = &next
	}
	if current.TreadID != nil {
		tread, err := s.repo.GetTread(ctx, *current.TreadID)
		if err != nil && !errors.Is(err, repository.ErrTreadNotFound) {
			return nil, err
		}
		item.Tread = tread
	}

	item.Images, err = s.repo.ListImages(ctx, productID)
	if err != nil {
		return nil, err
	}
	if item.Images == nil {
		item.Images = []domain.Image{}
	}

	levels, err := s.repo.StockLevels(ctx, []int64{productID})
	if err != nil {
		return nil, err
	}
	item.Stock = levels[productID]
	return item, nil
}

func (s *CatalogService) ListRevisions(ctx context.Context, productID int64) ([]domain.Tire, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListRevisions(ctx, productID)
}

// Search is the customer tire search. At least one field must be filled.
func (s *CatalogService) Search(ctx context.Context, q domain.TireQuery) ([]domain.Tire, error) {
	q.Width = strings.TrimSpace(q.Width)
	q.Brand = strings.TrimSpace(q.Brand)
	q.Season = strings.TrimSpace(q.Season)
	if q.Empty() {
		return nil, ErrEmptySearch
	}
	tires, err := s.repo.SearchCurrentTires(ctx, q, s.now())
	if err != nil {
		return nil, err
	}
	if tires == nil {
		tires = []domain.Tire{}
	}
	return tires, nil
}

// ListProducts is the staff listing: current revisions with stock levels.
func (s *CatalogService) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.CatalogItem, error) {
	tires, err := s.repo.ListCurrentTires(ctx, f, s.now())
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(tires))
	for i, t := range tires {
		ids[i] = t.ProductID
	}
	levels, err := s.repo.StockLevels(ctx, ids)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.CatalogItem, len(tires))
	for i, t := range tires {
		items[i] = domain.CatalogItem{
			Product: products[t.ProductID],
			Current: t,
			Images:  []domain.Image{},
			Stock:   levels[t.ProductID],
		}
	}
	return items, nil
}

func (s *CatalogService) CreateTread(ctx context.Context, name, description string) (*domain.Tread, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("tread name is required")
	}
	tread := &domain.Tread{Name: name, Description: strings.TrimSpace(description)}
	if err := s.repo.CreateTread(ctx, tread); err != nil {
		return nil, err
	}
	return tread, nil
}

func (s *CatalogService) ListTreads(ctx context.Context) ([]domain.Tread, error) {
	treads, err := s.repo.ListTreads(ctx)
	if err != nil {
		return nil, err
	}
	if treads == nil {
		treads = []domain.Tread{}
	}
	return treads, nil
}

func (s *CatalogService) AddImage(ctx context.Context, productID int64, url string) (*domain.Image, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, invalidInput("image url is required")
	}
	img := &domain.Image{ProductID: productID, URL: url}
	if err := s.repo.AddImage(ctx, img); err != nil {
		return nil, err
	}
	s.invalidate(productID)
	return img, nil
}

func (s *CatalogService) RemoveImage(ctx context.Context, imageID int64) error {
	productID, err := s.repo.DeleteImage(ctx, imageID)
	if err != nil {
		return err
	}
	s.invalidate(productID)
	return nil
}

func (s *CatalogService) invalidate(productIDs ...int64) {
	invalidateProducts(s.cache, productIDs...)
}

func invalidateProducts(c cache.ProductCache, productIDs ...int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Delete(ctx, productIDs...); err != nil {
		log.Printf("product cache invalidate error: %v", err)
	}
}

func validateSpec(spec *domain.TireSpec) error {
	spec.Name = strings.TrimSpace(spec.Name)
	spec.Brand = strings.TrimSpace(spec.Brand)
	if spec.Name == "" || spec.Brand == "" {
		return invalidInput("tire name and brand are required")
	}
	if spec.Price.IsNegative() {
		return invalidInput("price must not be negative")
	}
	spec.Price = domain.RoundMoney(spec.Price)
	if !spec.Price.LessThan(domain.MaxPrice) {
		return invalidInput("price must be below %s", domain.MaxPrice)
	}
	return nil
}
