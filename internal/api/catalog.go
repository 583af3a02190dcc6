package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ListCategories returns active categories. The endpoint has shipped three
// response shapes: {data: [...]}, a bare array, and {categories: [...]}.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, "/categories", nil, &raw); err != nil {
		return nil, err
	}
	all, err := parseCategories(raw)
	if err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	active := all[:0]
	for _, cat := range all {
		if cat.IsActive == nil || *cat.IsActive {
			active = append(active, cat)
		}
	}
	return active, nil
}

func parseCategories(raw json.RawMessage) ([]Category, error) {
	if isJSONArray(raw) {
		var list []Category
		err := json.Unmarshal(raw, &list)
		return list, err
	}
	var obj struct {
		Data       []Category `json:"data"`
		Categories []Category `json:"categories"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	if obj.Data != nil {
		return obj.Data, nil
	}
	return obj.Categories, nil
}

// CategoryNode is a top-level category with its direct children.
type CategoryNode struct {
	Category
	Children []Category
}

// BuildCategoryTree groups categories under their parents (matched by id or
// slug) and orders parents by their Order field.
func BuildCategoryTree(categories []Category) []CategoryNode {
	var nodes []CategoryNode
	var children []Category
	for _, cat := range categories {
		if cat.Parent.IsZero() {
			nodes = append(nodes, CategoryNode{Category: cat})
		} else {
			children = append(children, cat)
		}
	}
	for i := range nodes {
		parent := nodes[i].Category
		for _, child := range children {
			p := child.Parent
			if (p.ID != "" && (p.ID == parent.ID || p.ID == parent.Slug)) ||
				(p.Slug != "" && p.Slug == parent.Slug) {
				nodes[i].Children = append(nodes[i].Children, child)
			}
		}
	}
	sort.SliceStable(nodes, func(a, b int) bool { return nodes[a].Order < nodes[b].Order })
	return nodes
}

// Sort orders understood by ProductQuery.
const (
	SortNewest    = "newest"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortRating    = "rating"
)

// ProductQuery filters the product list.
type ProductQuery struct {
	Category  string
	Sort      string
	Search    string
	MinRating float64
	Page      int
	Limit     int
}

// ProductPage is one page of products.
type ProductPage struct {
	Products   []Product
	Total      int
	TotalPages int
}

// ListProducts fetches a page of products.
func (c *Client) ListProducts(ctx context.Context, query ProductQuery) (ProductPage, error) {
	values := url.Values{}
	if cat := strings.TrimSpace(query.Category); cat != "" {
		values.Set("category", cat)
	}
	values.Set("sort", sortParam(query.Sort))
	if search := strings.TrimSpace(query.Search); search != "" {
		values.Set("search", search)
	}
	if query.MinRating > 0 {
		values.Set("minRating", strconv.FormatFloat(query.MinRating, 'f', -1, 64))
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 12
	}
	values.Set("page", strconv.Itoa(page))
	values.Set("limit", strconv.Itoa(limit))

	var raw json.RawMessage
	if err := c.doQuery(ctx, http.MethodGet, "/products", values, &raw); err != nil {
		return ProductPage{}, err
	}
	result, err := parseProductPage(raw)
	if err != nil {
		return ProductPage{}, fmt.Errorf("decode products: %w", err)
	}
	return result, nil
}

func sortParam(sort string) string {
	switch sort {
	case SortPriceLow:
		return "price"
	case SortPriceHigh:
		return "-price"
	case SortRating:
		return "-averageRating"
	default:
		return "-createdAt"
	}
}

// parseProductPage handles the four list shapes the backend has returned:
//
//	{data: {products, total|totalProducts, totalPages}}
//	{data: [...], total, totalPages}
//	{products: [...], total, totalPages}
//	[...]
func parseProductPage(raw json.RawMessage) (ProductPage, error) {
	if isJSONArray(raw) {
		var list []Product
		if err := json.Unmarshal(raw, &list); err != nil {
			return ProductPage{}, err
		}
		return ProductPage{Products: list, Total: len(list), TotalPages: 1}, nil
	}

	var obj struct {
		Data       json.RawMessage `json:"data"`
		Products   []Product       `json:"products"`
		Total      int             `json:"total"`
		TotalPages int             `json:"totalPages"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ProductPage{}, err
	}

	switch {
	case len(obj.Data) > 0 && isJSONArray(obj.Data):
		var list []Product
		if err := json.Unmarshal(obj.Data, &list); err != nil {
			return ProductPage{}, err
		}
		return ProductPage{Products: list, Total: orDefault(obj.Total, len(list)), TotalPages: orDefault(obj.TotalPages, 1)}, nil
	case len(obj.Data) > 0 && obj.Data[0] == '{':
		var nested struct {
			Products      []Product `json:"products"`
			Total         int       `json:"total"`
			TotalProducts int       `json:"totalProducts"`
			TotalPages    int       `json:"totalPages"`
		}
		if err := json.Unmarshal(obj.Data, &nested); err != nil {
			return ProductPage{}, err
		}
		if nested.Products != nil {
			return ProductPage{
				Products:   nested.Products,
				Total:      orDefault(nested.Total, nested.TotalProducts),
				TotalPages: orDefault(nested.TotalPages, 1),
			}, nil
		}
	}
	if obj.Products != nil {
		return ProductPage{Products: obj.Products, Total: orDefault(obj.Total, len(obj.Products)), TotalPages: orDefault(obj.TotalPages, 1)}, nil
	}
	return ProductPage{TotalPages: 1}, nil
}

// GetProduct loads a product. Signed-in buyers use the personalised endpoint
// (which carries the wishlist heart); on failure, or when signed out, the
// public endpoint is used instead.
func (c *Client) GetProduct(ctx context.Context, id string, authenticated bool) (Product, error) {
	if strings.TrimSpace(id) == "" {
		return Product{}, fmt.Errorf("product id required")
	}
	escaped := url.PathEscape(id)
	if authenticated {
		p, err := c.fetchProduct(ctx, "/products/"+escaped)
		if err == nil {
			return p, nil
		}
		if errors.Is(err, ErrUnauthorized) {
			return Product{}, err
		}
		c.log.Debug("personalised product fetch failed, using public", "product", id, "error", err)
	}
	p, err := c.fetchProduct(ctx, "/products/"+escaped+"/public")
	if err != nil {
		return Product{}, err
	}
	p.IsHearted = false
	return p, nil
}

func (c *Client) fetchProduct(ctx context.Context, path string) (Product, error) {
	var payload struct {
		Product *Product `json:"product"`
	}
	if err := c.Do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return Product{}, err
	}
	if payload.Product == nil {
		return Product{}, &Error{Status: http.StatusNotFound, Path: path, Message: "product missing from response"}
	}
	return *payload.Product, nil
}

// ListReviews returns the reviews of a product.
func (c *Client) ListReviews(ctx context.Context, productID string) ([]Review, error) {
	var payload struct {
		Reviews []Review `json:"reviews"`
	}
	if err := c.Do(ctx, http.MethodGet, "/reviews/product/"+url.PathEscape(productID), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Reviews, nil
}

func isJSONArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
