package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// localStorage writes files below dir and serves them from baseURL/static.
type localStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(dir, baseURL string) (FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &localStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *localStorage) Upload(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := SafeName(fileName)
	if !strings.HasPrefix(name, "stake_certificate_") {
		name = uuid.NewString()[:8] + "_" + name
	}

	target := filepath.Join(s.dir, filepath.Clean("/"+folder), name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create folder %s: %w", folder, err)
	}

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	rel, err := filepath.Rel(s.dir, target)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/static/" + filepath.ToSlash(rel), nil
}

func (s *localStorage) Delete(ctx context.Context, fileURL string) error {
	prefix := s.baseURL + "/static/"
	if !strings.HasPrefix(fileURL, prefix) {
		return fmt.Errorf("file %s is not managed by local storage", fileURL)
	}
	rel := filepath.Clean("/" + strings.TrimPrefix(fileURL, prefix))
	err := os.Remove(filepath.Join(s.dir, rel))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
