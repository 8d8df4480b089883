package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"mcbedrock-downloader/catalog"
	"mcbedrock-downloader/transport"
)

// catalogRetries is how many times a failed version list fetch is retried
const catalogRetries = 2

// loadCatalog fetches the version list, refreshing the cache on success and
// falling back to it when the list cannot be fetched
func (a *app) loadCatalog(ctx context.Context, session *transport.Session) (*catalog.VersionList, error) {
	vl := catalog.NewVersionList(a.cfg.VersionsAPI, session, a.logger.Named("catalog"))

	var store *catalog.Store
	if a.cfg.CatalogCache != "" {
		s, err := catalog.OpenStore(a.cfg.CatalogCache)
		if err != nil {
			a.logger.Warn("catalog cache unavailable", zap.Error(err))
		} else {
			store = s
			defer store.Close()
		}
	}

	fmt.Fprintln(a.env.Err, "Loading version list...")

	fetchErr := a.errors.RetryWithBackoff(ctx, func() error {
		_, err := vl.DownloadList(ctx)
		return err
	}, catalogRetries, a.env.RetryDelay)

	switch {
	case fetchErr == nil && store != nil:
		if err := store.Save(ctx, vl.Versions()); err != nil {
			a.logger.Warn("failed to refresh catalog cache", zap.Error(err))
		}
	case fetchErr != nil:
		if store == nil || ctx.Err() != nil {
			return nil, fmt.Errorf("error loading version list: %w", fetchErr)
		}
		cached, err := store.Load(ctx)
		if err != nil || len(cached) == 0 {
			return nil, fmt.Errorf("error loading version list: %w", fetchErr)
		}
		vl.SetVersions(cached)

		age := "an unknown time ago"
		if fetchedAt, err := store.FetchedAt(ctx); err == nil && !fetchedAt.IsZero() {
			age = humanize.Time(fetchedAt)
		}
		fmt.Fprintf(a.env.Err, "Version list unavailable (%v), using cached list from %s\n", fetchErr, age)
	}

	fmt.Fprintf(a.env.Err, "Loaded %d versions\n", vl.Len())
	return vl, nil
}
