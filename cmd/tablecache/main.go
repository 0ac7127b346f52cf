package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/suparena/tablecache"
	"github.com/suparena/tablecache/cachestore/disk"
	"github.com/suparena/tablecache/scanmodels"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
	configFlag  = flag.String("config", "", "Path to YAML config file")
	tableFlag   = flag.String("table", "", "DynamoDB table to dump")
	cacheFlag   = flag.Bool("use-cache", false, "Serve from the staged cache when still fresh")
)

func main() {
	flag.Parse()

	if *versionFlag || *vFlag {
		info := tablecache.GetVersionInfo()
		fmt.Printf("TableCache version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	if *tableFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: tablecache -table <name> [-use-cache] [-config <path>]")
		os.Exit(2)
	}

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "tablecache: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := tablecache.LoadConfig(*configFlag)
	if err != nil {
		return err
	}
	creds, err := tablecache.LoadCredentials()
	if err != nil {
		return err
	}

	db, err := tablecache.NewDynamoDBClient(ctx, creds.AccessKey, creds.SecretKey, cfg.Region)
	if err != nil {
		return err
	}
	st, err := tablecache.NewStreamsClient(ctx, creds.AccessKey, creds.SecretKey, cfg.Region)
	if err != nil {
		return err
	}
	store, err := disk.New(cfg.CacheDir)
	if err != nil {
		return err
	}

	tc := tablecache.New(db, st, store, tablecache.WithScanOptions(
		scanmodels.WithMaxParallel(cfg.MaxParallel),
		scanmodels.WithBufferSize(cfg.BufferSize),
	))

	var opts []tablecache.GetOption
	if *cacheFlag {
		opts = append(opts, tablecache.WithCache())
	}
	batches, err := tc.GetRecords(ctx, *tableFlag, opts...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for batch := range batches {
		if batch.Error != nil {
			return batch.Error
		}
		for _, item := range batch.Items {
			if err := enc.Encode(item); err != nil {
				return err
			}
		}
	}
	return nil
}
