// Package store persists the audit's artifacts: policy snapshots and
// result files under the output directory.
package store

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/consentio/gdprscan/document"
	"github.com/consentio/gdprscan/log"
	"github.com/consentio/gdprscan/util"
)

type LocalStore interface {
	// List returns the names of all files in the store.
	List() ([]string, error)

	Contains(name string) (bool, error)

	Store(name string, content io.Reader) error

	// StoreDocument renders a snapshot to markdown and stores it under its
	// derived file name, which is returned.
	StoreDocument(doc *document.Document) (string, error)

	// Get returns a reader for the file with the given name. The caller is
	// responsible for closing the reader.
	Get(name string) (io.ReadCloser, error)
}

// FileStore keeps artifacts as plain files in a single directory.
type FileStore struct {
	log zerolog.Logger
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &FileStore{
		log: log.NewLogger("store"),
		dir: dir,
	}, nil
}

func (fs *FileStore) Dir() string {
	return fs.dir
}

func (fs *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

func (fs *FileStore) Contains(name string) (bool, error) {
	_, err := os.Stat(filepath.Join(fs.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (fs *FileStore) Store(name string, content io.Reader) error {
	filePath := filepath.Join(fs.dir, name)

	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	n, err := io.Copy(file, content)
	if err != nil {
		return err
	}

	fs.log.Debug().Str("name", name).Str("size", util.FormatBytes(n)).Msg("Artifact stored")

	return nil
}

func (fs *FileStore) StoreDocument(doc *document.Document) (string, error) {
	name, content, err := doc.ToMarkdown()
	if err != nil {
		return "", err
	}

	if err := fs.Store(name, strings.NewReader(content)); err != nil {
		return "", err
	}

	return name, nil
}

func (fs *FileStore) Get(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(fs.dir, name))
}
