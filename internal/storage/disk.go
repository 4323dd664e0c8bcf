package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

type DiskStorage struct {
	// BasePath is a directory writable by the current process
	BasePath  string
	dirs      map[string]bool
	dirsMutex sync.Mutex
}

func NewDiskStorage(basePath string) (*DiskStorage, error) {
	if basePath == "" {
		return nil, errors.New("output directory is empty")
	}
	return &DiskStorage{
		BasePath: basePath,
		dirs:     make(map[string]bool, 4),
	}, nil
}

func (s *DiskStorage) createDir(dir string) error {
	s.dirsMutex.Lock()
	defer s.dirsMutex.Unlock()

	if ok := s.dirs[dir]; ok {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	s.dirs[dir] = true
	return nil
}

func (s *DiskStorage) getFullPath(name string) string {
	return filepath.Join(s.BasePath, filepath.Clean("/"+name))
}

// WriteImage copies src into the output directory and returns the new path
func (s *DiskStorage) WriteImage(ctx context.Context, src, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fileName := s.getFullPath(name)
	if err := s.createDir(filepath.Dir(fileName)); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(fileName), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	// Write to a temp file first so a partial photo never appears under name
	tmp := fileName + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", err
	}
	if err = out.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err = os.Rename(tmp, fileName); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return fileName, nil
}
