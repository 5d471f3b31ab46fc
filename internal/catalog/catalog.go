package catalog

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"puntoventa/terminal/internal/domain"
)

// Fetcher is the catalog side of the backend gateway.
type Fetcher interface {
	FetchProducts(ctx context.Context) ([]domain.Product, error)
	FetchCategories(ctx context.Context) ([]domain.Category, error)
}

// Store holds the catalog for one panel session. It is loaded once on entry
// and only mutated by ApplySale, which decrements local stock after the
// backend confirms a sale.
type Store struct {
	fetcher    Fetcher
	log        zerolog.Logger
	products   []domain.Product
	index      map[int64]int
	categories []domain.Category
}

// Group is one display bucket of products sharing a category.
type Group struct {
	Name     string
	Products []domain.Product
}

// UncategorizedGroupName labels products without a known category when
// grouping the whole catalog.
const UncategorizedGroupName = "Sin categoría"

func NewStore(fetcher Fetcher, log zerolog.Logger) *Store {
	return &Store{
		fetcher: fetcher,
		log:     log,
		index:   make(map[int64]int),
	}
}

// Load fetches products and categories sequentially. Both calls share the
// caller's context; a 401 on either propagates untouched so the caller can
// take the forced-logout path.
func (s *Store) Load(ctx context.Context) error {
	products, err := s.fetcher.FetchProducts(ctx)
	if err != nil {
		return err
	}
	categories, err := s.fetcher.FetchCategories(ctx)
	if err != nil {
		return err
	}

	s.products = products
	s.categories = categories
	s.index = make(map[int64]int, len(products))
	for i, product := range products {
		s.index[product.ID] = i
	}

	s.log.Info().
		Int("productos", len(products)).
		Int("categorias", len(categories)).
		Msg("catálogo cargado")
	return nil
}

func (s *Store) Products() []domain.Product {
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	return out
}

func (s *Store) Categories() []domain.Category {
	out := make([]domain.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

func (s *Store) Get(id int64) (domain.Product, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.Product{}, false
	}
	return s.products[i], true
}

// Search filters by case-insensitive name substring and, when categoryID is
// not zero, by category.
func (s *Store) Search(query string, categoryID int64) []domain.Product {
	query = strings.ToLower(strings.TrimSpace(query))

	matches := make([]domain.Product, 0, len(s.products))
	for _, product := range s.products {
		if query != "" && !strings.Contains(strings.ToLower(product.Name), query) {
			continue
		}
		if categoryID != 0 && product.CategoryID != categoryID {
			continue
		}
		matches = append(matches, product)
	}
	return matches
}

// GroupByCategory buckets the filtered catalog in category order, with a
// trailing bucket for products whose category is missing or unknown. Empty
// buckets are skipped.
func (s *Store) GroupByCategory(query string) []Group {
	filtered := s.Search(query, 0)

	known := make(map[int64]bool, len(s.categories))
	groups := make([]Group, 0, len(s.categories)+1)
	for _, category := range s.categories {
		known[category.ID] = true
		var bucket []domain.Product
		for _, product := range filtered {
			if product.CategoryID == category.ID {
				bucket = append(bucket, product)
			}
		}
		if len(bucket) > 0 {
			groups = append(groups, Group{Name: category.Name, Products: bucket})
		}
	}

	var loose []domain.Product
	for _, product := range filtered {
		if product.CategoryID == 0 || !known[product.CategoryID] {
			loose = append(loose, product)
		}
	}
	if len(loose) > 0 {
		groups = append(groups, Group{Name: UncategorizedGroupName, Products: loose})
	}
	return groups
}

// ApplySale optimistically decrements local stock by the sold quantities.
// Called only after the gateway confirms the sale; the backend performs the
// authoritative decrement server-side.
func (s *Store) ApplySale(items []domain.SaleItem) {
	for _, item := range items {
		i, ok := s.index[item.ProductID]
		if !ok {
			continue
		}
		s.products[i].Stock -= item.Quantity
		if s.products[i].Stock < 0 {
			s.products[i].Stock = 0
		}
	}
}
