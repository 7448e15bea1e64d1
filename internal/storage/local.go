package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidPath = errors.New("invalid object path")

// LocalStore хранит файлы на диске. URL файла строится как baseURL + "/" + path.
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolve storage root")
	}
	if err := os.MkdirAll(abs, 0o755); err != nil { //nolint:mnd
		return nil, errors.Wrapf(err, "create storage root %s", abs)
	}
	return &LocalStore{
		root:    abs,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *LocalStore) Put(ctx context.Context, path string, body io.Reader, _ int64, _ string) (string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, "put object")
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil { //nolint:mnd
		return "", errors.Wrapf(err, "create dir for %s", path)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", path)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", errors.Wrapf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "close %s", path)
	}
	return s.URL(path), nil
}

func (s *LocalStore) Delete(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete %s", path)
	}
	return nil
}

func (s *LocalStore) URL(path string) string {
	return s.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(path), "/")
}

// resolve не дает выйти за пределы root через "..".
func (s *LocalStore) resolve(path string) (string, error) {
	if path == "" {
		return "", ErrInvalidPath
	}
	full := filepath.Join(s.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", errors.Wrapf(ErrInvalidPath, "%q", path)
	}
	return full, nil
}
