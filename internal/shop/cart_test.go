package shop

import (
	"testing"

	"github.com/kalambet/shopper/internal/catalog"
)

func TestCart_AddRemoveTotal(t *testing.T) {
	var c Cart
	c.Add(catalog.Product{ID: "gen_1", Name: "Scarf", Price: 10})
	c.Add(catalog.Product{ID: "gen_2", Name: "Shirt", Price: 25.5})
	c.Add(catalog.Product{ID: "gen_1", Name: "Scarf", Price: 10})

	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if c.Total() != 45.5 {
		t.Errorf("Total = %v, want 45.5", c.Total())
	}

	removed, ok := c.Remove("gen_1")
	if !ok || removed.Name != "Scarf" {
		t.Fatalf("Remove = (%+v, %v)", removed, ok)
	}
	items := c.Items()
	if len(items) != 2 || items[0].ID != "gen_2" || items[1].ID != "gen_1" {
		t.Errorf("items after removing the first gen_1 = %+v", items)
	}

	if _, ok := c.Remove("gen_9"); ok {
		t.Error("Remove of an absent id reported success")
	}

	c.Clear()
	if c.Len() != 0 || c.Total() != 0 {
		t.Errorf("after Clear: Len = %d, Total = %v", c.Len(), c.Total())
	}
}

func TestCart_HoldsCopies(t *testing.T) {
	p := catalog.Product{ID: "gen_1", Tags: []string{"red"}}
	var c Cart
	c.Add(p)

	p.Tags[0] = "blue"
	items := c.Items()
	if items[0].Tags[0] != "red" {
		t.Errorf("cart entry changed with the source product: %v", items[0].Tags)
	}

	items[0].Tags[0] = "green"
	if c.Items()[0].Tags[0] != "red" {
		t.Error("cart entry changed through Items()")
	}
}
