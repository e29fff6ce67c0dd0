package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// File is an append-only key=value log, loaded fully at open. Writes go
// straight to disk; the log is compacted on Close so it does not grow
// without bound across runs.
type File struct {
	mu   sync.Mutex
	path string
	file *os.File
	data map[string]string
}

func NewFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache file: %w", err)
	}

	c := &File{path: path, file: f, data: make(map[string]string)}
	if err := c.load(); err != nil {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("Failed to close cache file", "error", closeErr)
		}
		return nil, err
	}
	return c, nil
}

func (c *File) load() error {
	f, err := os.Open(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read cache file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("Failed to close cache file", "error", err)
		}
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if key, value, ok := strings.Cut(scanner.Text(), "="); ok {
			c.data[key] = value // last write wins
		}
	}
	return scanner.Err()
}

func (c *File) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return value, nil
}

func (c *File) Set(_ context.Context, key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = value
	if _, err := fmt.Fprintf(c.file, "%s=%s\n", key, value); err != nil {
		return fmt.Errorf("failed to append to cache file: %w", err)
	}
	return nil
}

// Close compacts the log to one line per key and closes the file.
func (c *File) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.compact(); err != nil {
		slog.Error("Failed to compact cache file", "error", err)
	}
	if err := c.file.Close(); err != nil {
		slog.Error("Failed to close cache file", "error", err)
	}
}

func (c *File) compact() error {
	tmpPath := c.path + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	for k, v := range c.data {
		if _, err := fmt.Fprintf(tmp, "%s=%s\n", k, v); err != nil {
			if closeErr := tmp.Close(); closeErr != nil {
				return closeErr
			}
			return err
		}
	}
	if err := tmp.Sync(); err != nil {
		if closeErr := tmp.Close(); closeErr != nil {
			return closeErr
		}
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, c.path)
}
