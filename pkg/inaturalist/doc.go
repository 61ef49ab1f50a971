// Package inaturalist provides a client for the iNaturalist v1 JSON API.
//
// This package includes:
//   - A client with typed errors from pkg/errors and request logging
//   - Models for observations, species counts and taxon search
//   - Query builders for the three endpoints the harvester uses
//
// Observation bodies are exposed raw through ObservationsRaw so callers can
// cache exactly what the API returned and parse it later with
// ParseObservationResult.
//
// Example usage:
//
//	client := inaturalist.NewClient(inaturalist.DefaultBaseURL, 5*time.Second, log)
//
//	raw, err := client.ObservationsRaw(ctx, inaturalist.NewObservationQuery(taxonID, 100))
//	if err != nil {
//	    return err
//	}
//	result, err := inaturalist.ParseObservationResult(raw)
//	for _, ref := range result.PhotoReferences() {
//	    fmt.Println(ref.Index, ref.URL)
//	}
package inaturalist
