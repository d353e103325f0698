package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

var _ Store = (*FileStore)(nil)

// fileFormat is the on-disk layout. Values holds plaintext entries; Sealed holds
// the encrypted JSON of the same map when a passphrase is configured.
type fileFormat struct {
	Version int               `json:"version"`
	Values  map[string]string `json:"values,omitempty"`
	Sealed  *sealedBox        `json:"sealed,omitempty"`
}

// FileStore keeps credentials in a JSON file so a session survives restarts.
// Every write rewrites the whole file through a temp file and rename.
type FileStore struct {
	path   string
	cipher *boxCipher
	mu     sync.Mutex
}

type FileStoreOption func(*FileStore)

// WithPassphrase encrypts the file contents with a key derived from passphrase.
func WithPassphrase(passphrase string) FileStoreOption {
	return func(fs *FileStore) {
		if passphrase != "" {
			fs.cipher = newBoxCipher(passphrase)
		}
	}
}

func NewFileStore(path string, options ...FileStoreOption) *FileStore {
	fs := &FileStore{path: path}
	for _, opt := range options {
		opt(fs)
	}
	return fs
}

func (fs *FileStore) Path() string {
	return fs.path
}

func (fs *FileStore) Get(key string) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	values, err := fs.load()
	if err != nil {
		log.Warn().Err(err).Str("path", fs.path).Msg("credential file unreadable, treating as empty")
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	values, err := fs.load()
	if err != nil {
		// An unreadable file is replaced rather than blocking new credentials.
		log.Warn().Err(err).Str("path", fs.path).Msg("overwriting unreadable credential file")
		values = make(map[string]string)
	}
	values[key] = value
	return fs.save(values)
}

func (fs *FileStore) Remove(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	values, err := fs.load()
	if err != nil {
		values = make(map[string]string)
	}
	if _, ok := values[key]; !ok && err == nil {
		return nil
	}
	delete(values, key)
	return fs.save(values)
}

func (fs *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("[FileStore.load] read: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("[FileStore.load] parse: %w", err)
	}

	if f.Sealed != nil {
		if fs.cipher == nil {
			return nil, fmt.Errorf("[FileStore.load] file is encrypted and no passphrase is configured")
		}
		plain, err := fs.cipher.open(f.Sealed)
		if err != nil {
			return nil, fmt.Errorf("[FileStore.load] decrypt: %w", err)
		}
		values := make(map[string]string)
		if err := json.Unmarshal(plain, &values); err != nil {
			return nil, fmt.Errorf("[FileStore.load] parse sealed values: %w", err)
		}
		return values, nil
	}

	if f.Values == nil {
		f.Values = make(map[string]string)
	}
	return f.Values, nil
}

func (fs *FileStore) save(values map[string]string) error {
	f := fileFormat{Version: 1}
	if fs.cipher != nil {
		plain, err := json.Marshal(values)
		if err != nil {
			return fmt.Errorf("[FileStore.save] marshal: %w", err)
		}
		box, err := fs.cipher.seal(plain)
		if err != nil {
			return fmt.Errorf("[FileStore.save] encrypt: %w", err)
		}
		f.Sealed = box
	} else {
		f.Values = values
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("[FileStore.save] marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return fmt.Errorf("[FileStore.save] mkdir: %w", err)
	}

	tempFile := fs.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("[FileStore.save] write temp file: %w", err)
	}
	if err := os.Rename(tempFile, fs.path); err != nil {
		if removeErr := os.Remove(tempFile); removeErr != nil {
			return fmt.Errorf("[FileStore.save] rename: %v; remove temp file: %w", err, removeErr)
		}
		return fmt.Errorf("[FileStore.save] rename: %w", err)
	}
	return nil
}
