// Package species defines the unit of work of a harvest and where it comes from.
//
// A Species carries its taxon id, display name and folder key. The folder
// key is derived purely from the name and doubles as the directory name and
// the response cache key.
//
// Source yields species either in bulk, by paging the geographic
// species_counts query, or one name at a time through taxa search.
package species
