package storage

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidName = errors.New("invalid file name")

// StoredFile describes a file written by FileStore.
type StoredFile struct {
	Name string `json:"stored_filename"`
	Path string `json:"file_path"`
	URL  string `json:"media_url"`
	Size int64  `json:"file_size"`
}

// FileStore writes media under a single directory that is served at
// <baseURL>/uploads/. Files are never expired.
type FileStore struct {
	dir     string
	baseURL string
}

func NewFileStore(dir, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (fs *FileStore) Dir() string { return fs.dir }

// Save stores data under a fresh <uuid>.<ext> name, keeping the extension of
// the original file name.
func (fs *FileStore) Save(original string, data []byte) (StoredFile, error) {
	name := uuid.New().String() + strings.ToLower(filepath.Ext(filepath.Base(original)))
	path := filepath.Join(fs.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return StoredFile{}, fmt.Errorf("write %s: %w", name, err)
	}
	return StoredFile{
		Name: name,
		Path: path,
		URL:  fs.URL(name),
		Size: int64(len(data)),
	}, nil
}

// URL returns the public link for a stored file name.
func (fs *FileStore) URL(name string) string {
	return fs.baseURL + "/uploads/" + name
}

// Exists reports whether a stored file is present. Names containing path
// elements are rejected.
func (fs *FileStore) Exists(name string) (string, bool, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", false, ErrInvalidName
	}
	path := filepath.Join(fs.dir, name)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return path, false, nil
	}
	if err != nil {
		return path, false, err
	}
	return path, !info.IsDir(), nil
}

// ExtensionFor picks a file extension for a content type, or "" when none is
// known.
func ExtensionFor(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	exts, err := mime.ExtensionsByType(mt)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}
