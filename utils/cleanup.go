package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ReferencedFunc reports the upload file names still referenced by stored records.
type ReferencedFunc func(ctx context.Context) (map[string]struct{}, error)

// StartUploadSweeper launches a background goroutine that periodically deletes
// locally stored uploads no record points at anymore. It is best-effort and logs failures.
func StartUploadSweeper(ctx context.Context, dir string, interval, grace time.Duration, referenced ReferencedFunc) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := SweepUploads(ctx, dir, grace, referenced)
				if err != nil {
					Sugar.Warnf("upload sweeper: %v", err)
					continue
				}
				if len(removed) > 0 {
					Sugar.Infof("upload sweeper removed %d orphaned files", len(removed))
				}
			}
		}
	}()
}

// SweepUploads removes regular files in dir older than grace that are not referenced.
// Nothing is removed when the reference set cannot be built.
func SweepUploads(ctx context.Context, dir string, grace time.Duration, referenced ReferencedFunc) ([]string, error) {
	keep, err := referenced(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect references: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	cutoff := time.Now().Add(-grace)
	var removed []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if _, ok := keep[entry.Name()]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			Sugar.Warnf("upload sweeper: remove %s: %v", entry.Name(), err)
			continue
		}
		removed = append(removed, entry.Name())
	}
	return removed, nil
}
