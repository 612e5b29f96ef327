package document_test

import (
	"fmt"

	"github.com/matzehuels/sitecraft/pkg/document"
)

func ExampleDocument_Move() {
	doc := document.New("acme")
	for _, in := range []document.Instance{
		document.NewInstance(document.Hero, 1),
		document.NewInstance(document.Card, 5),
		document.NewInstance(document.Footer, 1),
	} {
		if _, err := doc.Insert("homepage", in, doc.Len("homepage")); err != nil {
			panic(err)
		}
	}

	footer := doc.Page("homepage")[2]
	if err := doc.Move("homepage", footer.ID, 0); err != nil {
		panic(err)
	}
	for _, in := range doc.Page("homepage") {
		fmt.Println(in.Position, in.ComponentName)
	}
	// Output:
	// 0 footer1
	// 1 hero1
	// 2 card5
}

func ExampleParseVariant() {
	base, n, err := document.ParseVariant("imageText12")
	fmt.Println(base, n, err)
	// Output: imageText 12 <nil>
}
