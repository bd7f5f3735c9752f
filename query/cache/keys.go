package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/refractdb/refract/query/domain"
)

// Shape is the query identity a cache key is derived from. Two structurally
// equal shapes always hash to the same key.
type Shape struct {
	Filter     domain.FilterNode
	Sort       []domain.Sorter
	Pagination *domain.PaginationSpec
	TenantID   interface{}
}

// Key derives a deterministic cache key from operation identity and query
// shape. The serialization is order-preserving and every component is
// delimited and typed, so differing shapes cannot collide by construction.
func Key(operation, resource string, shape Shape) string {
	h := sha256.New()

	fmt.Fprintf(h, "op(%s)res(%s)", operation, resource)
	writeFilter(h, shape.Filter)

	fmt.Fprint(h, "sort(")
	for _, s := range shape.Sort {
		fmt.Fprintf(h, "(%s,%s)", s.Field, s.Order)
	}
	fmt.Fprint(h, ")")

	if p := shape.Pagination; p != nil {
		fmt.Fprintf(h, "page(%s,%d,%d)", p.Mode, p.Current, p.PageSize)
	} else {
		fmt.Fprint(h, "page()")
	}

	writeValue(h, "tenant", shape.TenantID)

	sum := hex.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s:%s:%s", resource, operation, sum[:16])
}

func writeFilter(w io.Writer, node domain.FilterNode) {
	switch n := node.(type) {
	case nil:
		fmt.Fprint(w, "filter()")
	case *domain.Leaf:
		fmt.Fprintf(w, "leaf(%s,%s,", n.Field, n.Operator)
		writeValue(w, "v", n.Value)
		fmt.Fprint(w, ")")
	case *domain.Composite:
		fmt.Fprintf(w, "comp(%s,", n.Operator)
		for _, child := range n.Children {
			writeFilter(w, child)
		}
		fmt.Fprint(w, ")")
	}
}

// writeValue includes the dynamic type so e.g. int(1) and "1" stay distinct.
func writeValue(w io.Writer, tag string, value interface{}) {
	fmt.Fprintf(w, "%s(%T:%v)", tag, value, value)
}
