package shopify

// productsQuery lists one page of products with their first variant.
// Pagination arguments are always variables; unset ones are sent as null.
const productsQuery = `query Products($first: Int, $after: String, $last: Int, $before: String) {
  products(first: $first, after: $after, last: $last, before: $before) {
    edges {
      cursor
      node {
        id
        title
        status
        variants(first: 1) {
          edges {
            node {
              id
              price
              sku
            }
          }
        }
      }
    }
    pageInfo {
      hasNextPage
      hasPreviousPage
      startCursor
      endCursor
    }
  }
}`

// pageVariables builds the variables for productsQuery.
// Forward pages use first/after, backward pages use last/before.
func pageVariables(cursor *string, pageSize int, backward bool) map[string]any {
	var c any
	if cursor != nil && *cursor != "" {
		c = *cursor
	}
	if backward {
		return map[string]any{"last": pageSize, "before": c}
	}
	return map[string]any{"first": pageSize, "after": c}
}
