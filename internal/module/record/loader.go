package record

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader"

	"github.com/simp-lee/recordsvc/internal/domain"
)

type loaderKey struct{}

// batchWait is how long the loader collects keys before issuing one query.
const batchWait = 2 * time.Millisecond

// NewLoader returns a loader that batches point lookups into a single
// FindByIDs call. A missing record resolves to nil data without error.
func NewLoader(store domain.RecordStore) *dataloader.Loader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		records, err := store.FindByIDs(ctx, keys.Keys())
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		byID := make(map[string]*domain.Record, len(records))
		for i := range records {
			byID[records[i].ID] = &records[i]
		}
		for i, k := range keys {
			if rec, ok := byID[k.String()]; ok {
				results[i] = &dataloader.Result{Data: rec}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}

	return dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(batchWait))
}

// WithLoader returns a copy of ctx carrying loader.
func WithLoader(ctx context.Context, loader *dataloader.Loader) context.Context {
	return context.WithValue(ctx, loaderKey{}, loader)
}

// LoaderFromContext returns the request's loader, or nil when none is installed.
func LoaderFromContext(ctx context.Context) *dataloader.Loader {
	if l, ok := ctx.Value(loaderKey{}).(*dataloader.Loader); ok {
		return l
	}
	return nil
}

// LoaderMiddleware installs a fresh loader for every request so cached
// lookups never outlive the request that made them.
func LoaderMiddleware(store domain.RecordStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithLoader(c.Request.Context(), NewLoader(store))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// loadOne resolves a single id through loader.
func loadOne(ctx context.Context, loader *dataloader.Loader, id string) (*domain.Record, error) {
	data, err := loader.Load(ctx, dataloader.StringKey(id))()
	if err != nil {
		return nil, err
	}
	rec, _ := data.(*domain.Record)
	return rec, nil
}

// loadMany resolves ids through loader, preserving their order. Missing
// records are nil entries.
func loadMany(ctx context.Context, loader *dataloader.Loader, ids []string) ([]*domain.Record, error) {
	keys := dataloader.NewKeysFromStrings(ids)
	data, errs := loader.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := make([]*domain.Record, len(ids))
	for i := range data {
		out[i], _ = data[i].(*domain.Record)
	}
	return out, nil
}
