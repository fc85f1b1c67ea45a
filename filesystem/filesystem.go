// Package filesystem abstracts the local file operations the static
// file collaborator needs, so tests can substitute their own tree.
package filesystem

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	ErrFileNotFound      = fmt.Errorf("filesystem: file not found")
	ErrDirectoryNotFound = fmt.Errorf("filesystem: directory not found")
)

type Filesystem interface {
	ReadFile(path string) ([]byte, error)
	IsDirectory(path string) (bool, error)

	// WalkFiles calls visit with the path of every regular file under
	// root, recursively.
	WalkFiles(root string, visit func(path string) error) error
}

type localFilesystem struct{}

func NewLocalFilesystem() Filesystem {
	return &localFilesystem{}
}

func (filesystem *localFilesystem) ReadFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return content, nil
}

func (filesystem *localFilesystem) IsDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, ErrDirectoryNotFound
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (filesystem *localFilesystem) WalkFiles(root string, visit func(path string) error) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		return visit(path)
	})
}
