// Package resolver maps a vague product reference ("add the silver one")
// to a concrete product id using the most recent product list shown in the
// conversation.
package resolver

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kalambet/shopper/internal/catalog"
	"github.com/kalambet/shopper/internal/chat"
)

var explicitID = regexp.MustCompile(`gen_\d+`)

// Resolution is the product an utterance refers to.
type Resolution struct {
	ProductID string
	// Explicit is true when the id was written out in the utterance.
	Explicit bool
	// Score is the keyword overlap that selected the product; zero when Explicit.
	Score int
}

// Resolve finds the product utterance refers to. history is the conversation
// so far with the current user message last; that message is never scanned
// for candidates. It reports false when nothing matches, in which case the
// caller should ask the user to clarify.
func Resolve(history []chat.Message, utterance string) (Resolution, bool) {
	lower := strings.ToLower(utterance)
	if id := explicitID.FindString(lower); id != "" {
		return Resolution{ProductID: id, Explicit: true}, true
	}

	candidates := RecentProducts(history)
	if len(candidates) == 0 {
		return Resolution{}, false
	}

	words := make(map[string]struct{})
	for _, w := range strings.Fields(lower) {
		words[w] = struct{}{}
	}

	var best Resolution
	for _, p := range candidates {
		score := overlap(words, keywords(p))
		// Strictly greater: ties keep the first candidate seen.
		if score > best.Score {
			best = Resolution{ProductID: p.ID, Score: score}
		}
	}
	if best.Score == 0 {
		return Resolution{}, false
	}
	return best, true
}

// RecentProducts returns the most recent product list shown in history,
// skipping the final message. Only assistant and tool messages whose content
// is a JSON array qualify; the scan stops at the first one, even when none of
// its elements is usable. Elements are read leniently: only id, name and tags
// are kept, tags may be an array or JSON-encoded text, and elements without
// an id are dropped.
func RecentProducts(history []chat.Message) []catalog.Product {
	if len(history) == 0 {
		return nil
	}
	for i := len(history) - 2; i >= 0; i-- {
		m := history[i]
		if m.Role != chat.RoleAssistant && m.Role != chat.RoleTool {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if !strings.HasPrefix(content, "[") || !strings.HasSuffix(content, "]") {
			continue
		}
		var elems []json.RawMessage
		if err := json.Unmarshal([]byte(content), &elems); err != nil {
			continue
		}
		products := make([]catalog.Product, 0, len(elems))
		for _, e := range elems {
			if p, ok := shownProduct(e); ok {
				products = append(products, p)
			}
		}
		return products
	}
	return nil
}

func shownProduct(raw json.RawMessage) (catalog.Product, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return catalog.Product{}, false
	}
	var id string
	if err := json.Unmarshal(fields["id"], &id); err != nil || id == "" {
		return catalog.Product{}, false
	}
	var name string
	json.Unmarshal(fields["name"], &name)
	return catalog.Product{ID: id, Name: name, Tags: lenientTags(fields["tags"])}, true
}

// lenientTags accepts ["a","b"] or the same array encoded as a JSON string.
func lenientTags(raw json.RawMessage) []string {
	var tags []string
	if json.Unmarshal(raw, &tags) == nil {
		return catalog.NormalizeTags(tags)
	}
	var text string
	if json.Unmarshal(raw, &text) != nil {
		return nil
	}
	if json.Unmarshal([]byte(text), &tags) == nil {
		return catalog.NormalizeTags(tags)
	}
	return nil
}

func keywords(p catalog.Product) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(p.Name)) {
		out[w] = struct{}{}
	}
	for _, t := range p.Tags {
		out[t] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
