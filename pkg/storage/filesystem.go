package storage

import (
	"context"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// FilesystemStorage implements the Storage interface for interacting with
// the local filesystem.
type FilesystemStorage struct {
	Config Config
}

// NewFilesystemStorage implements the Storage interface for simple S3 like
// file system interactions.
func NewFilesystemStorage(config Config) FilesystemStorage {
	return FilesystemStorage{
		Config: config,
	}
}

// Write writes the data to the key. The data is written to a temporary file
// in the same directory and renamed over the key, so readers never see a
// partial document.
func (f FilesystemStorage) Write(ctx context.Context,
	key string,
	body []byte,
	options *Options) error {

	if options == nil {
		opts := NewOptions()
		options = &opts
	}

	filename := f.buildPath(key)

	dir := path.Dir(filepath.ToSlash(filename))
	if err := f.ensureExists(filepath.FromSlash(dir), options); err != nil {
		return err
	}

	tmp, err := ioutil.TempFile(filepath.FromSlash(dir), ".write-")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	mode := options.Mode
	if mode == 0 {
		mode = 0644
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filename)
}

// Read reads the data from a file on the local filesystem.
func (f FilesystemStorage) Read(ctx context.Context,
	key string) ([]byte, error) {

	filename := f.buildPath(key)

	b, err := ioutil.ReadFile(filename)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}

	return b, err
}

// Remove removes the file stored at key.
func (f FilesystemStorage) Remove(ctx context.Context, key string) error {
	err := os.Remove(f.buildPath(key))
	if os.IsNotExist(err) {
		return ErrNotFound
	}

	return err
}

// Search returns all objects directly under the "path" in the query.
//
// The path can be empty.
func (f FilesystemStorage) Search(ctx context.Context,
	query map[string]string) ([][]byte, error) {

	keys, err := f.List(ctx, query["path"])
	if err != nil {
		return nil, err
	}

	objects := make([][]byte, 0, len(keys))
	for _, key := range keys {
		b, err := f.Read(ctx, key)
		if err != nil {
			return nil, err
		}

		objects = append(objects, b)
	}

	return objects, nil
}

// List returns the keys of the files directly under a path, sorted.
func (f FilesystemStorage) List(ctx context.Context, p string) ([]string, error) {
	dir := f.buildPath(p)

	files, err := ioutil.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	keys := []string{}
	for _, info := range files {
		if info.IsDir() || strings.HasPrefix(info.Name(), ".write-") {
			continue
		}

		if len(p) == 0 {
			keys = append(keys, info.Name())
		} else {
			keys = append(keys, strings.Join([]string{strings.TrimSuffix(p, "/"), info.Name()}, "/"))
		}
	}

	sort.Strings(keys)
	return keys, nil
}

// Clear removes all files directly under the "path" in the query.
func (f FilesystemStorage) Clear(ctx context.Context, query map[string]string) error {
	keys, err := f.List(ctx, query["path"])
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := f.Remove(ctx, key); err != nil && err != ErrNotFound {
			return err
		}
	}

	return nil
}

func (f FilesystemStorage) buildPath(key string) string {
	parts := []string{
		f.Config.Root,
		f.Config.Bucket,
	}

	if len(key) > 0 {
		parts = append(parts, key)
	}

	s := strings.Join(parts, "/")

	return filepath.FromSlash(s)
}

func (f FilesystemStorage) ensureExists(dir string, options *Options) error {
	mode := options.DirMode
	if mode == 0 {
		mode = 0755
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, mode); err != nil {
			return err
		}
	}

	return nil
}
