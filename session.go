package storecrawl

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SessionStore persists one serialized browsing-session snapshot per key.
// Any durable byte store works; the reference deployment is the local
// filesystem.
type SessionStore interface {
	Exists(key string) bool
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	Delete(key string) error
	ModTime(key string) (time.Time, error)
}

// SessionSnapshot mirrors the storage-state shape the playwright binding
// captures. The crawler core treats the blob as opaque; this struct exists
// for the rod binding and for callers that want to inspect a snapshot.
type SessionSnapshot struct {
	Cookies []SessionCookie `json:"cookies"`
	Origins []OriginStorage `json:"origins"`
}

type SessionCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HttpOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

type OriginStorage struct {
	Origin       string      `json:"origin"`
	LocalStorage []NameValue `json:"localStorage"`
}

type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// decodeSnapshot rejects blobs that do not parse as a storage state, so a
// truncated or corrupt file is treated as absent instead of poisoning a new
// browsing context.
func decodeSnapshot(data []byte) (*SessionSnapshot, error) {
	var snapshot SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("corrupt session snapshot: %w", err)
	}
	return &snapshot, nil
}

// sessionKey derives a content-addressed store key from the target base URL.
func sessionKey(baseUrl string) string {
	sum := sha256.Sum256([]byte(baseUrl))
	return hex.EncodeToString(sum[:])[:16] + ".json"
}

// FileSessionStore keeps snapshots as files under Dir.
type FileSessionStore struct {
	Dir string
}

func NewFileSessionStore(dir string) *FileSessionStore {
	return &FileSessionStore{Dir: dir}
}

func (s *FileSessionStore) path(key string) string {
	return filepath.Join(s.Dir, key)
}

func (s *FileSessionStore) Exists(key string) bool {
	info, err := os.Stat(s.path(key))
	return err == nil && !info.IsDir()
}

func (s *FileSessionStore) Read(key string) ([]byte, error) {
	return os.ReadFile(s.path(key))
}

// Write replaces the snapshot atomically so readers never observe a partial
// file.
func (s *FileSessionStore) Write(key string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Dir, key+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(key))
}

// Delete is idempotent: removing an absent snapshot is not an error.
func (s *FileSessionStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FileSessionStore) ModTime(key string) (time.Time, error) {
	info, err := os.Stat(s.path(key))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
