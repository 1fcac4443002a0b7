// Package intent classifies a shopper's utterance into the action the
// dialogue should take next.
package intent

import "strings"

// Kind is the coarse action an utterance asks for.
type Kind string

const (
	Checkout  Kind = "CHECKOUT"
	AddToCart Kind = "ADD_TO_CART"
	ViewCart  Kind = "VIEW_CART"
	Search    Kind = "SEARCH"
	Chat      Kind = "CHAT"
)

var (
	searchVerbs = []string{"find", "need", "looking", "want", "show", "search", "recommend", "suggest", "buy", "shop", "where"}
	apparel     = []string{"dress", "suit", "shoes", "jacket", "shirt", "pant", "bag", "skirt", "heels", "boots", "sneakers", "sunglasses", "glasses", "eyewear", "tuxedo", "gown"}
)

// Classify maps an utterance to a Kind. Rules are case-insensitive substring
// tests evaluated in priority order; the first one that holds wins.
//
//	CHECKOUT     "checkout", or both "buy" and "cart"
//	ADD_TO_CART  "add" with "cart" or "bag"
//	VIEW_CART    "cart", "bag" or "basket"
//	SEARCH       a search verb or an apparel noun
//	CHAT         anything else
func Classify(utterance string) Kind {
	s := strings.ToLower(utterance)

	switch {
	case strings.Contains(s, "checkout") || (strings.Contains(s, "buy") && strings.Contains(s, "cart")):
		return Checkout
	case strings.Contains(s, "add") && (strings.Contains(s, "cart") || strings.Contains(s, "bag")):
		return AddToCart
	case containsAny(s, "cart", "bag", "basket"):
		return ViewCart
	case containsAny(s, searchVerbs...) || containsAny(s, apparel...):
		return Search
	default:
		return Chat
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
