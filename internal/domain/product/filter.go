package product

import (
	"sort"
	"strings"
)

// ListRequest filters and pages a catalog listing
type ListRequest struct {
	Game      string `form:"game"`
	Category  string `form:"category"`
	Search    string `form:"search"`
	Available bool   `form:"available"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=name price rating"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ListResponse is one page of products
type ListResponse struct {
	Products   []Product `json:"products"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

// List filters, sorts and pages products. The input slice is not modified.
func List(products []Product, req ListRequest) ListResponse {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}

	search := strings.ToLower(strings.TrimSpace(req.Search))
	matched := make([]Product, 0, len(products))
	for _, p := range products {
		if req.Game != "" && !strings.EqualFold(p.Game, req.Game) {
			continue
		}
		if req.Category != "" && !strings.EqualFold(p.Category, req.Category) {
			continue
		}
		if req.Available && !p.IsAvailable() {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Game), search) {
			continue
		}
		matched = append(matched, p)
	}

	sortProducts(matched, req.SortBy, req.SortOrder == "desc")

	resp := ListResponse{
		Total:      len(matched),
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: (len(matched) + req.Limit - 1) / req.Limit,
	}
	start := (req.Page - 1) * req.Limit
	if start >= len(matched) {
		resp.Products = []Product{}
		return resp
	}
	end := start + req.Limit
	if end > len(matched) {
		end = len(matched)
	}
	resp.Products = matched[start:end]
	return resp
}

func sortProducts(products []Product, by string, desc bool) {
	var less func(a, b Product) bool
	switch by {
	case "price":
		less = func(a, b Product) bool { return a.Price.LessThan(b.Price) }
	case "rating":
		less = func(a, b Product) bool { return a.Rating < b.Rating }
	case "name":
		less = func(a, b Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	default:
		// catalog order
		return
	}

	sort.SliceStable(products, func(i, j int) bool {
		if desc {
			return less(products[j], products[i])
		}
		return less(products[i], products[j])
	})
}
