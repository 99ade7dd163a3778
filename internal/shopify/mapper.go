package shopify

import (
	"strings"

	"github.com/Checker-Finance/storefront-admin/pkg/model"
)

//
// ────────────────────────────────────────────────
//   Mapper – Converts between Shopify and model
// ────────────────────────────────────────────────
//

// Mapper translates Admin API payloads into the service's model types.
type Mapper struct{}

// NewMapper constructs a Mapper instance.
func NewMapper() *Mapper { return &Mapper{} }

// ToPage converts a product connection into a Page of at most limit products.
// For backward pages the products nearest the cursor are kept.
// A cursor is exposed only when its page flag is set and the cursor is non-empty.
func (m *Mapper) ToPage(conn *ProductConnection, limit int, backward bool) model.Page {
	if conn == nil {
		return model.EmptyPage()
	}
	info := conn.PageInfo
	edges := conn.Edges
	if limit > 0 && len(edges) > limit {
		// The cut side pages from the kept edge nearest the cut.
		if backward {
			edges = edges[len(edges)-limit:]
			info.HasPreviousPage, info.StartCursor = true, edges[0].Cursor
		} else {
			edges = edges[:limit]
			info.HasNextPage, info.EndCursor = true, edges[len(edges)-1].Cursor
		}
	}

	products := make([]model.ProductSummary, 0, len(edges))
	for _, e := range edges {
		products = append(products, m.ToSummary(e.Node))
	}

	var next, prev *string
	if info.HasNextPage && info.EndCursor != "" {
		next = model.StringPtr(info.EndCursor)
	}
	if info.HasPreviousPage && info.StartCursor != "" {
		prev = model.StringPtr(info.StartCursor)
	}
	return model.NewPage(products, next, prev)
}

// ToSummary projects a product node and its first variant.
func (m *Mapper) ToSummary(n ProductNode) model.ProductSummary {
	s := model.ProductSummary{
		ID:     TrailingID(n.ID),
		Title:  n.Title,
		Status: strings.ToLower(n.Status),
	}
	if len(n.Variants.Edges) > 0 {
		v := n.Variants.Edges[0].Node
		s.VariantID = model.StringPtr(TrailingID(v.ID))
		s.VariantPrice = model.StringPtr(v.Price)
		s.VariantSKU = model.StringPtr(v.SKU)
	}
	return s
}

// ToDetail converts a REST product into a ProductDetail.
func (m *Mapper) ToDetail(p *RESTProduct) *model.ProductDetail {
	if p == nil {
		return nil
	}
	d := &model.ProductDetail{
		ID:       p.ID.String(),
		Title:    p.Title,
		Status:   strings.ToLower(p.Status),
		Variants: make([]model.Variant, 0, len(p.Variants)),
	}
	if p.CreatedAt != nil {
		t := p.CreatedAt.UTC()
		d.CreatedAt = &t
	}
	if p.UpdatedAt != nil {
		t := p.UpdatedAt.UTC()
		d.UpdatedAt = &t
	}
	for _, v := range p.Variants {
		d.Variants = append(d.Variants, m.ToVariant(v, d.ID))
	}
	return d
}

// ToVariant converts a REST variant. productID fills in a missing product_id.
func (m *Mapper) ToVariant(v RESTVariant, productID string) model.Variant {
	pid := v.ProductID.String()
	if pid == "" {
		pid = productID
	}
	return model.Variant{
		ID:        v.ID.String(),
		ProductID: pid,
		Title:     v.Title,
		Price:     v.Price,
		SKU:       v.SKU,
	}
}
