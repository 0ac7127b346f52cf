//go:build integration
// +build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablecache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"github.com/suparena/tablecache"
	"github.com/suparena/tablecache/cachestore/disk"
)

// Requires a live table with a NEW_IMAGE (or richer) stream enabled.
//
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY
//	AWS_REGION
//	TABLECACHE_TEST_TABLE
//
// Run with: go test -tags=integration -run TestLiveTable ./...
func TestLiveTableCacheRoundTrip(t *testing.T) {
	_ = godotenv.Load()

	table := os.Getenv("TABLECACHE_TEST_TABLE")
	region := os.Getenv("AWS_REGION")
	if table == "" || region == "" {
		t.Skip("TABLECACHE_TEST_TABLE and AWS_REGION not set; skipping")
	}

	creds, err := tablecache.LoadCredentials()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := tablecache.NewDynamoDBClient(ctx, creds.AccessKey, creds.SecretKey, region)
	require.NoError(t, err)
	st, err := tablecache.NewStreamsClient(ctx, creds.AccessKey, creds.SecretKey, region)
	require.NoError(t, err)
	store, err := disk.New(t.TempDir())
	require.NoError(t, err)

	tc := tablecache.New(db, st, store)

	count := func(useCache bool) int {
		var opts []tablecache.GetOption
		if useCache {
			opts = append(opts, tablecache.WithCache())
		}
		batches, err := tc.GetRecords(ctx, table, opts...)
		require.NoError(t, err)

		n := 0
		for b := range batches {
			require.NoError(t, b.Error)
			n += len(b.Items)
		}
		return n
	}

	// First pass scans fresh and stages; the second must serve the same rows
	// from the cache as long as the table stays quiet.
	fresh := count(true)
	t.Logf("fresh scan returned %d items", fresh)

	time.Sleep(2 * time.Second) // let the background stage settle

	cached := count(true)
	require.Equal(t, fresh, cached)
}
