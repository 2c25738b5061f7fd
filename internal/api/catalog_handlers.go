package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/example/artisan-shop/internal/catalog"
)

// CatalogHandlers serves the public catalog and the admin product and
// category CRUD.
type CatalogHandlers struct {
	store *catalog.Store
}

func NewCatalogHandlers(store *catalog.Store) *CatalogHandlers {
	return &CatalogHandlers{store: store}
}

// ProductRequest is the admin create/update payload. Price is a decimal
// string so amounts never pass through binary floats.
type ProductRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	CategoryID  string `json:"category_id,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

func (req *ProductRequest) toProduct() (*catalog.Product, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return nil, catalog.ErrInvalidPrice
	}
	return &catalog.Product{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
	}, nil
}

func (h *CatalogHandlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	categoryID := r.URL.Query().Get("category_id")
	products, err := h.store.ListProducts(r.Context(), categoryID)
	if err != nil {
		log.Printf("[API] Error listing products: %v", err)
		respondJSONError(w, "failed to fetch products", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *CatalogHandlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/products/")
	p, err := h.store.GetProduct(r.Context(), id)
	if errors.Is(err, catalog.ErrProductNotFound) {
		// Storefront links use slugs; try that before giving up.
		p, err = h.store.GetProductBySlug(r.Context(), id)
	}
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondJSONError(w, "product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[API] Error getting product %s: %v", id, err)
		respondJSONError(w, "failed to fetch product", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *CatalogHandlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, err := req.toProduct()
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.store.CreateProduct(r.Context(), p); err != nil {
		if isValidation(err) {
			respondJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("[API] Error creating product: %v", err)
		respondJSONError(w, "failed to create product", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/admin/products/")

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, err := req.toProduct()
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.ID = id
	if p.Slug == "" {
		p.Slug = catalog.Slugify(p.Name)
	}

	if err := h.store.UpdateProduct(r.Context(), p); err != nil {
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			respondJSONError(w, "product not found", http.StatusNotFound)
		case isValidation(err):
			respondJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("[API] Error updating product %s: %v", id, err)
			respondJSONError(w, "failed to update product", http.StatusInternalServerError)
		}
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *CatalogHandlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/admin/products/")
	if err := h.store.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondJSONError(w, "product not found", http.StatusNotFound)
			return
		}
		log.Printf("[API] Error deleting product %s: %v", id, err)
		respondJSONError(w, "failed to delete product", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

// Categories

type CategoryRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	SortOrder   int    `json:"sort_order,omitempty"`
}

func (h *CatalogHandlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		log.Printf("[API] Error listing categories: %v", err)
		respondJSONError(w, "failed to fetch categories", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// GetCategory serves a storefront category page: the category plus its
// products, looked up by slug.
func (h *CatalogHandlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	slug := extractPathParam(r.URL.Path, "/categories/")
	c, err := h.store.GetCategoryBySlug(r.Context(), slug)
	if errors.Is(err, catalog.ErrCategoryNotFound) {
		respondJSONError(w, "category not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[API] Error getting category %s: %v", slug, err)
		respondJSONError(w, "failed to fetch category", http.StatusInternalServerError)
		return
	}

	products, err := h.store.ListProducts(r.Context(), c.ID)
	if err != nil {
		log.Printf("[API] Error listing products for category %s: %v", c.ID, err)
		respondJSONError(w, "failed to fetch category", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"category": c,
		"products": products,
	})
}

func (h *CatalogHandlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	c := &catalog.Category{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	}
	if err := h.store.CreateCategory(r.Context(), c); err != nil {
		if isValidation(err) {
			respondJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("[API] Error creating category: %v", err)
		respondJSONError(w, "failed to create category", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *CatalogHandlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/admin/categories/")
	if err := h.store.DeleteCategory(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrCategoryNotFound) {
			respondJSONError(w, "category not found", http.StatusNotFound)
			return
		}
		log.Printf("[API] Error deleting category %s: %v", id, err)
		respondJSONError(w, "failed to delete category", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "category deleted"})
}

func isValidation(err error) bool {
	return errors.Is(err, catalog.ErrInvalidName) ||
		errors.Is(err, catalog.ErrInvalidPrice) ||
		errors.Is(err, catalog.ErrInvalidStock)
}
