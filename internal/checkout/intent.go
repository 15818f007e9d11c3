package checkout

import (
	"net/url"
	"strconv"
	"strings"
)

const defaultQuantity = 1

// Intent captures how the user entered checkout. It is derived entirely
// from navigation query parameters, never persisted, and parsing the same
// parameters always yields the same intent.
type Intent struct {
	Direct     bool
	VariantRef string
	Quantity   int
}

// ParseIntent reads the checkout entry parameters. The direct path requires
// both `direct=true` and a variant reference; anything else falls back to
// the cart-based path. Malformed quantities degrade to the default of 1
// rather than failing the flow.
func ParseIntent(params url.Values) Intent {
	variantRef := strings.TrimSpace(params.Get("variantId"))
	direct := params.Get("direct") == "true" && variantRef != ""

	return Intent{
		Direct:     direct,
		VariantRef: variantRef,
		Quantity:   parseQuantity(params.Get("qty")),
	}
}

func parseQuantity(raw string) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultQuantity
	}
	qty, err := strconv.Atoi(trimmed)
	if err != nil || qty < 1 {
		return defaultQuantity
	}
	return qty
}
