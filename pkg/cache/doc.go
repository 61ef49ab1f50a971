// Package cache stores raw iNaturalist observation responses so repeat runs
// skip the network.
//
// The persistent tier is a SQLite database (pure Go driver) bounded by a
// byte ceiling; when a write pushes the total payload size over the ceiling,
// least recently read or written entries are evicted first. A short-lived
// in-memory tier sits in front of it:
//
//	store, err := cache.Open("cache/responses.db", 1<<30, 10*time.Minute, false)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	body, ok, err := store.Get(ctx, "blue_tang")
//
// Open with disabled set returns a Nop store whose reads always miss.
package cache
