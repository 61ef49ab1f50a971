// Package retry provides exponential backoff and retry logic for transient
// failures while paging through species listings.
//
// The per-species observation query never goes through this package: a
// failed fetch there is contained and the species completes with zero photos.
//
// Basic usage:
//
//	cfg := retry.FromSettings(appConfig.Retry, log)
//	page, err := retry.DoWithResult(ctx, func(ctx context.Context) (*Page, error) {
//		return client.SpeciesCounts(ctx, query, n)
//	}, cfg)
package retry
