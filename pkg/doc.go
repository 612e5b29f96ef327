// Package pkg holds the libraries behind sitecraft, the editing engine for
// multi-tenant real-estate websites.
//
// A tenant's site is a set of pages, each an ordered list of component
// instances (hero, card, footer, ...). The packages split the engine into:
//
//  1. [document] - pages, instances, variant naming and theme backups
//  2. [layered] and [families] - per-instance data resolved as
//     defaults, persisted, live state and render props
//  3. [collision] and [placement] - drag-and-drop geometry and reordering
//  4. [changelog] - bounded log of every structural change
//  5. [store] and [cache] - persistence gateways (memory, file, MongoDB)
//     with a Redis or file snapshot cache
//  6. [editor] - one session per tenant tying the above together, with
//     debounced and coalesced saves
//  7. [api], [renderer] and [outline] - HTTP, HTML and Graphviz surfaces
//
// # Quick Start
//
//	sess, err := editor.Open(ctx, store.NewMemory(), "acme", editor.Options{})
//	if err != nil {
//	    return err
//	}
//	hero := document.NewInstance(document.Hero, 1)
//	if _, err := sess.Insert("homepage", hero, 0); err != nil {
//	    return err
//	}
//	if _, err := sess.UpdateByPath(hero.ID, "title", "Harbour homes"); err != nil {
//	    return err
//	}
//	res, err := sess.Save(ctx)
package pkg
