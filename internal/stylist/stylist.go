// Package stylist turns a free-text shopping request into a structured
// catalog search request using fixed keyword vocabularies.
package stylist

import (
	"strings"
	"unicode"

	"github.com/kalambet/shopper/internal/catalog"
)

type demographic struct {
	tag   string
	words []string
}

// Groups are tested in order; the first group with a word hit wins.
var demographics = []demographic{
	{"boy", []string{"boy", "boys", "kid", "kids"}},
	{"girl", []string{"girl", "girls"}},
	{"men", []string{"men", "man", "male", "husband", "father"}},
	{"women", []string{"women", "woman", "female", "wife", "mother", "lady"}},
}

type categoryKeyword struct {
	keyword  string
	category string
}

var categoryKeywords = []categoryKeyword{
	{"dress", "Clothing"},
	{"gown", "Clothing"},
	{"skirt", "Clothing"},
	{"shirt", "Clothing"},
	{"top", "Clothing"},
	{"blouse", "Clothing"},
	{"hoodie", "Clothing"},
	{"pant", "Clothing"},
	{"jeans", "Clothing"},
	{"trouser", "Clothing"},
	{"chino", "Clothing"},
	{"jacket", "Clothing"},
	{"coat", "Clothing"},
	{"blazer", "Clothing"},
	{"suit", "Clothing"},
	{"tuxedo", "Clothing"},
	{"shoes", "Shoes"},
	{"boot", "Shoes"},
	{"heel", "Shoes"},
	{"sneaker", "Shoes"},
	{"loafer", "Shoes"},
	{"flat", "Shoes"},
	{"bag", "Accessories"},
	{"tote", "Accessories"},
	{"clutch", "Accessories"},
	{"backpack", "Accessories"},
	{"jewelry", "Accessories"},
	{"earring", "Accessories"},
	{"necklace", "Accessories"},
	{"bracelet", "Accessories"},
	{"scarf", "Accessories"},
	{"glass", "Accessories"},
}

var styles = []string{
	"wedding", "formal", "casual", "summer", "winter", "beach", "party", "office", "work",
	"floral", "strip", "check", "red", "blue", "green", "black", "white", "gold", "silver", "pink",
	"beige", "navy", "vintage", "modern", "bohemian", "chic", "streetwear", "elegant",
}

// Build extracts a search request from utterance. The query is the style
// keywords found followed by the category keywords found, each in vocabulary
// order; when nothing is recognized it falls back to the whole lowercased
// utterance. At most one demographic tag is set. Category is left empty so
// the keywords constrain the search through the query alone.
func Build(utterance string) catalog.SearchRequest {
	s := strings.ToLower(utterance)

	var parts []string
	for _, style := range styles {
		if strings.Contains(s, style) {
			parts = append(parts, style)
		}
	}
	for _, ck := range categoryKeywords {
		if strings.Contains(s, ck.keyword) {
			parts = append(parts, ck.keyword)
		}
	}

	query := strings.Join(parts, " ")
	if query == "" {
		query = s
	}

	tags := []string{}
	if tag, ok := Demographic(s); ok {
		tags = append(tags, tag)
	}
	return catalog.SearchRequest{Query: query, Tags: tags}
}

// Word forms accepted after a demographic keyword: "mens", "menswear",
// "kidswear".
var demographicSuffixes = []string{"", "s", "wear", "swear"}

// Demographic returns the demographic tag implied by utterance, if any.
// A word matches a keyword when it starts with it, so "women" never counts
// as "men".
func Demographic(utterance string) (string, bool) {
	words := strings.FieldsFunc(strings.ToLower(utterance), notLetter)
	for _, d := range demographics {
		for _, kw := range d.words {
			for _, w := range words {
				if isWordForm(w, kw) {
					return d.tag, true
				}
			}
		}
	}
	return "", false
}

func isWordForm(word, kw string) bool {
	rest, ok := strings.CutPrefix(word, kw)
	if !ok {
		return false
	}
	for _, suffix := range demographicSuffixes {
		if rest == suffix {
			return true
		}
	}
	return false
}

func notLetter(r rune) bool {
	return !unicode.IsLetter(r)
}

// CategoryFor returns the catalog category a keyword belongs to.
func CategoryFor(keyword string) (string, bool) {
	keyword = strings.ToLower(keyword)
	for _, ck := range categoryKeywords {
		if ck.keyword == keyword {
			return ck.category, true
		}
	}
	return "", false
}
