package entity

import "sort"

// Reservation is the per-product demand of a set of order lines.
type Reservation struct {
	// IDs lists every touched product once, sorted. Locks are taken in this
	// order.
	IDs []string
	// Totals is the summed quantity per product.
	Totals map[string]int
}

// NewReservation validates quantities and sums lines per product.
func NewReservation(lines []LineRequest) (Reservation, error) {
	r := Reservation{Totals: make(map[string]int, len(lines))}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return Reservation{}, &InvalidQuantityError{ProductID: l.ProductID, Quantity: l.Quantity}
		}
		if _, seen := r.Totals[l.ProductID]; !seen {
			r.IDs = append(r.IDs, l.ProductID)
		}
		r.Totals[l.ProductID] += l.Quantity
	}
	sort.Strings(r.IDs)
	return r, nil
}

// Check walks lines in submission order against the current stock. It reports
// the first product that does not exist or whose running total exceeds its
// stock. stockOf returns false for unknown products.
func (r Reservation) Check(lines []LineRequest, stockOf func(id string) (int, bool)) error {
	for _, l := range lines {
		if _, ok := stockOf(l.ProductID); !ok {
			return &ProductNotFoundError{ProductID: l.ProductID}
		}
	}
	running := make(map[string]int, len(r.Totals))
	for _, l := range lines {
		running[l.ProductID] += l.Quantity
		if stock, _ := stockOf(l.ProductID); running[l.ProductID] > stock {
			return &InsufficientStockError{ProductID: l.ProductID, Requested: running[l.ProductID], Available: stock}
		}
	}
	return nil
}
