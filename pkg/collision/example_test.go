package collision_test

import (
	"fmt"

	"github.com/matzehuels/sitecraft/pkg/collision"
	"github.com/matzehuels/sitecraft/pkg/geom"
)

func ExampleDetector_Detect() {
	d := collision.New(collision.Options{})

	hero := collision.Target{ID: "hero", Rect: geom.RectXYWH(0, 0, 300, 100)}
	in := collision.Input{
		ActiveID: "footer",
		Active:   geom.RectXYWH(0, 40, 300, 100),
		Motion:   geom.Up,
	}

	c, ok := d.Detect(in, hero)
	fmt.Println(ok, c.TargetID, c.Priority, c.Direction)
	// Output: true hero high up
}
