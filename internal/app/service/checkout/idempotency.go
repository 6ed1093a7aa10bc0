package checkout

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ItemRequest is one requested line of a checkout.
type ItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

// DeriveIdempotencyKey computes a stable, collision-resistant key from the
// checkout intent. Items are sorted by product id so request-body reordering
// does not change the key, and no timestamp is folded in: an identical
// retried request maps to the same key and is rejected as a duplicate.
// A client that wants a second, genuinely new order for the same cart sends
// a distinct purchaseRef, which is the only uniqueness salt.
func DeriveIdempotencyKey(userID string, items []ItemRequest, planID, purchaseRef string) string {
	sorted := make([]ItemRequest, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	var b strings.Builder
	b.WriteString(userID)
	for _, it := range sorted {
		fmt.Fprintf(&b, "|%s:%d", it.ProductID, it.Quantity)
	}
	b.WriteString("|plan=")
	b.WriteString(planID)
	if purchaseRef != "" {
		b.WriteString("|ref=")
		b.WriteString(purchaseRef)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
