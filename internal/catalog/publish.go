package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"topic-catalog/internal/storage"
)

const (
	snapshotPrefix = "catalog-"
	snapshotLayout = "20060102T150405.000000Z"
	// keys written before sub-second precision was added
	legacySnapshotLayout = "20060102T150405Z"
)

// PublishResult describes an uploaded snapshot.
type PublishResult struct {
	URI     string
	Topics  int
	Removed []string
}

// SnapshotKey names the object a snapshot taken at t is stored under.
func SnapshotKey(prefix string, t time.Time) string {
	name := snapshotPrefix + t.UTC().Format(snapshotLayout) + ".json"
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// StaleSnapshots returns the snapshot keys beyond the newest retain, newest first.
func StaleSnapshots(objects []storage.ObjectInfo, retain int) []string {
	type snapshot struct {
		key string
		at  time.Time
	}

	var snapshots []snapshot
	for _, obj := range objects {
		if at, ok := snapshotTime(obj.Key); ok {
			snapshots = append(snapshots, snapshot{key: obj.Key, at: at})
		}
	}
	sort.Slice(snapshots, func(i, j int) bool {
		if !snapshots[i].at.Equal(snapshots[j].at) {
			return snapshots[i].at.After(snapshots[j].at)
		}
		return snapshots[i].key > snapshots[j].key
	})

	if retain < 0 {
		retain = 0
	}
	if len(snapshots) <= retain {
		return nil
	}
	stale := make([]string, 0, len(snapshots)-retain)
	for _, s := range snapshots[retain:] {
		stale = append(stale, s.key)
	}
	return stale
}

// snapshotTime reads the timestamp out of a snapshot key.
func snapshotTime(key string) (time.Time, bool) {
	base := path.Base(key)
	if !strings.HasPrefix(base, snapshotPrefix) || !strings.HasSuffix(base, ".json") {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(base, snapshotPrefix), ".json")
	for _, layout := range []string{snapshotLayout, legacySnapshotLayout} {
		if at, err := time.Parse(layout, stamp); err == nil {
			return at, true
		}
	}
	return time.Time{}, false
}

// Publish uploads a snapshot to bucket under prefix. When retain is positive,
// older snapshots beyond the newest retain are deleted.
func (c *Catalog) Publish(ctx context.Context, store storage.Service, bucket, prefix string, retain int, now time.Time) (PublishResult, error) {
	var result PublishResult

	var buf bytes.Buffer
	count, err := c.Export(ctx, &buf, now)
	if err != nil {
		return result, err
	}
	result.Topics = count

	key := SnapshotKey(prefix, now)
	if result.URI, err = store.Upload(ctx, bucket, key, &buf, "application/json"); err != nil {
		return result, err
	}
	c.logger.WithField("uri", result.URI).WithField("topics", count).Info("snapshot uploaded")

	if retain <= 0 {
		return result, nil
	}

	listPrefix := strings.Trim(prefix, "/")
	if listPrefix != "" {
		listPrefix += "/"
	}
	objects, err := store.ListObjects(ctx, bucket, listPrefix)
	if err != nil {
		return result, err
	}
	stale := StaleSnapshots(objects, retain)
	if len(stale) == 0 {
		return result, nil
	}
	if err := store.DeleteObjects(ctx, bucket, stale); err != nil {
		return result, fmt.Errorf("prune snapshots: %w", err)
	}
	result.Removed = stale
	return result, nil
}

// Open resolves a catalog file location: s3://bucket/key is read through store,
// anything else from the local filesystem.
func Open(ctx context.Context, store storage.Service, location string) (io.ReadCloser, error) {
	if bucket, key, ok := storage.ParseURI(location); ok {
		if store == nil {
			return nil, fmt.Errorf("object storage is not configured for %s", location)
		}
		return store.Download(ctx, bucket, key)
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	return f, nil
}
