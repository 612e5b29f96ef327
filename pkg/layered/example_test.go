package layered_test

import (
	"fmt"

	"github.com/matzehuels/sitecraft/pkg/document"
	"github.com/matzehuels/sitecraft/pkg/layered"
)

func ExampleFamilyStore_UpdateByPath() {
	store := layered.NewStore(nil)
	card := store.Family(document.Card)

	card.EnsureVariant("listing-1", nil)
	data, _ := card.UpdateByPath("listing-1", "property.price", 450000)

	prop := data["property"].(map[string]any)
	fmt.Println(prop["title"], prop["price"], prop["currency"])
	// Output: Property 450000 EUR
}
