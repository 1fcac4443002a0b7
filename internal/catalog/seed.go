package catalog

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

type productLine struct {
	subType string
	names   []string
}

var seedCategories = []struct {
	name  string
	lines []productLine
}{
	{"Clothing", []productLine{
		{"Dress", []string{"Floral Summer Dress", "Silk Wrap Dress", "Velvet Cocktail Dress", "Linen Summer Dress", "Sequined Evening Dress", "Knitted Midi Dress", "Pleated Midi Skirt"}},
		{"Top", []string{"Ribbed Knit Top", "Silk Blouse", "Cotton T-Shirt", "Linen Casual Shirt", "Oversized Blazer", "Streetwear Hoodie", "Classic Oxford Shirt"}},
		{"Pants", []string{"Straight-Fit High-Waisted Jeans", "Slim-Fit Jeans", "Chino Pants", "Tailored Trousers", "Wide Leg Jeans", "Cargo Pants"}},
		{"Jacket", []string{"Bomber Jacket", "Leather Biker Jacket", "Wool Blazer", "Trench Coat", "Puffer Jacket", "Denim Jacket"}},
		{"Suit", []string{"Navy Wool Suit", "Charcoal Slim Suit", "Tuxedo", "Linen Summer Suit"}},
	}},
	{"Accessories", []productLine{
		{"Bag", []string{"Leather Tote Bag", "Sleek Backpack", "Small Crossbody Bag", "Velvet Clutch", "Woven Straw Bag"}},
		{"Jewelry", []string{"Gold Hoops", "Pearl Drop Earrings", "Silver Chain Necklace", "Diamond Studs", "Chunky Bracelet"}},
		{"Eyewear", []string{"Aviator Sunglasses", "Cat Eye Sunglasses", "Wayfarer", "Round Metal"}},
		{"Scarves", []string{"Silk Scarf", "Cashmere Wrap", "Wool Scarf", "Patterned Bandana"}},
	}},
	{"Shoes", []productLine{
		{"Heels", []string{"Block Heels", "Strappy Gold Heels", "Classic Black Pumps", "Nude Kittens"}},
		{"Boots", []string{"Leather Chelsea Boots", "Suede Ankle Boots", "Knee High Boots", "Combat Boots"}},
		{"Flats", []string{"Leather Loafers", "Minimal White Sneakers", "Chunky Sneakers", "Ballet Flats", "Espadrilles"}},
	}},
}

var (
	seedColors       = []string{"Red", "Blue", "Green", "Black", "White", "Beige", "Navy", "Gold", "Silver", "Pink", "Burgundy", "Camel", "Pastel", "Floral"}
	seedAdjectives   = []string{"Elegant", "Casual", "Vintage", "Modern", "Classic", "Bohemian", "Chic", "Minimalist", "Oversized", "Fitted", "Winter", "Summer", "Autumn", "Spring"}
	seedDemographics = []string{"Women", "Men", "Girl", "Boy"}
)

const imageBase = "https://images.unsplash.com/"

var seedImages = map[string]string{
	"Dress":    "photo-1595777457583-95e059d581b8",
	"Top":      "photo-1596755094514-f87e34085b2c",
	"Pants":    "photo-1594633312681-425c7b97ccd1",
	"Jacket":   "photo-1551028919-6016b7af5549",
	"Suit":     "photo-1594938298603-c8148c47e356",
	"Bag":      "photo-1584917865442-de89df76afd3",
	"Jewelry":  "photo-1535632066927-ab7c9ab60908",
	"Eyewear":  "photo-1511499767150-a48a237f0083",
	"Scarves":  "photo-1520975661595-dc22dd83ca91",
	"Heels":    "photo-1543163521-1bf539c55dd2",
	"Boots":    "photo-1608256246200-53e635b5b65f",
	"Flats":    "photo-1560343090-f0409e92791a",
	"Clothing": "photo-1523381210434-271e8be1f52b",
}

// Generate builds count synthetic products with ids gen_1..gen_count. The
// same seed always yields the same catalog.
func Generate(count int, seed uint64) []Product {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	products := make([]Product, 0, count)

	for i := range count {
		cat := seedCategories[rng.IntN(len(seedCategories))]
		line := cat.lines[rng.IntN(len(cat.lines))]
		baseName := line.names[rng.IntN(len(line.names))]
		color := seedColors[rng.IntN(len(seedColors))]
		adj := seedAdjectives[rng.IntN(len(seedAdjectives))]

		var demo string
		switch {
		case containsAny(baseName, "Dress", "Skirt", "Blouse", "Heels", "Clutch"):
			demo = pick(rng, "Women", "Girl")
		case containsAny(baseName, "Suit", "Tuxedo", "Oxford"):
			demo = pick(rng, "Men", "Boy")
		default:
			demo = seedDemographics[rng.IntN(len(seedDemographics))]
		}

		name := fmt.Sprintf("%s %s %s", adj, color, baseName)
		if demo == "Girl" || demo == "Boy" || rng.Float64() > 0.7 {
			name = demo + "'s " + name
		}

		price := 25.0 + rng.Float64()*(450.0-25.0)
		if demo == "Girl" || demo == "Boy" {
			price *= 0.6
		}
		price = math.Round(price*100) / 100

		tags := []string{strings.ToLower(cat.name), strings.ToLower(line.subType), strings.ToLower(color), strings.ToLower(adj), strings.ToLower(demo), "fashion"}
		if cat.name == "Clothing" {
			tags = append(tags, "clothes")
			if rng.Float64() > 0.4 {
				tags = append(tags, "women")
			} else {
				tags = append(tags, "men")
			}
		}
		occasion := tags[len(tags)-1]
		switch {
		case containsAny(baseName, "Wedding", "Suit", "Evening"):
			tags = append(tags, "formal", "wedding")
			occasion = "wedding"
		case containsAny(baseName, "Casual", "Hoodie", "Sneakers"):
			tags = append(tags, "casual", "streetwear")
			occasion = "streetwear"
		}

		img, ok := seedImages[line.subType]
		if !ok {
			img, ok = seedImages[cat.name]
		}
		if !ok {
			img = seedImages["Clothing"]
		}

		products = append(products, Product{
			ID:          fmt.Sprintf("gen_%d", i+1),
			Name:        name,
			Category:    cat.name,
			Price:       price,
			Description: fmt.Sprintf("A stylish %s for %ss. Perfect for %s occasions.", strings.ToLower(baseName), demo, occasion),
			Tags:        NormalizeTags(tags),
			Stock:       1 + rng.IntN(50),
			Image:       imageBase + img + "?q=80&w=1000&auto=format&fit=crop",
		})
	}
	return products
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func pick(rng *rand.Rand, options ...string) string {
	return options[rng.IntN(len(options))]
}
