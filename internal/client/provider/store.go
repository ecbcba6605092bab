package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/equiplookup/internal/filex"
)

// sessionStore persists the session as JSON readable only by the owner.
// An empty path disables persistence.
type sessionStore struct {
	path string
}

func (s sessionStore) load() (*Session, error) {
	if s.path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.AccessToken == "" || sess.RefreshToken == "" {
		return nil, nil
	}
	return &sess, nil
}

func (s sessionStore) save(sess *Session) error {
	if s.path == "" {
		return nil
	}
	if err := filex.EnsureDir(filepath.Dir(s.path)); err != nil {
		return err
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return filex.WriteFileAtomic(s.path, b, 0o600)
}

func (s sessionStore) clear() error {
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
