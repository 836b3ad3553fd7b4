package cart

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/rahulmehra/storefront-backend/pkg/types"
)

// ComputeFingerprint hashes the cart's identifying contents: line ids,
// quantities, and unit prices, order-independent. Two carts with the same
// lines produce the same fingerprint; any mutation changes it. Payment
// intents are bound to the fingerprint taken at request time so a stale
// intent is detectable before confirmation.
func ComputeFingerprint(items []types.CartItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s|%d|%s", item.ID, item.Quantity, item.Product.Price.String()))
	}
	sort.Strings(lines)

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}
