package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"studysync/models"

	"go.etcd.io/bbolt"
)

const (
	identityBucket = "identity"
	// IdentityKey is the fixed key of the cached identity record
	IdentityKey = "studysync_user"
)

// CachedIdentity is the locally persisted identity
type CachedIdentity struct {
	User  *models.User `json:"user"`
	Local bool         `json:"local"`
}

// IdentityCache persists the last known identity
type IdentityCache interface {
	Load() (*CachedIdentity, error)
	Save(*CachedIdentity) error
	Clear() error
}

// BoltCache stores the identity in a bbolt file. The file is opened per operation so
// several CLI processes can share it.
type BoltCache struct {
	Path string
}

// DefaultDataDir is ~/.studysync
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".studysync"
	}
	return filepath.Join(home, ".studysync")
}

// NewBoltCache creates dataDir (0700) and returns a cache at dataDir/client.db.
// An empty dataDir means DefaultDataDir.
func NewBoltCache(dataDir string) (*BoltCache, error) {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &BoltCache{Path: filepath.Join(dataDir, "client.db")}, nil
}

func (c *BoltCache) open(readOnly bool) (*bbolt.DB, error) {
	return bbolt.Open(c.Path, 0o600, &bbolt.Options{Timeout: 2 * time.Second, ReadOnly: readOnly})
}

// Load returns nil when nothing is cached
func (c *BoltCache) Load() (*CachedIdentity, error) {
	if _, err := os.Stat(c.Path); os.IsNotExist(err) {
		return nil, nil
	}
	db, err := c.open(true)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var id *CachedIdentity
	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(identityBucket))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(IdentityKey))
		if v == nil {
			return nil
		}
		id = &CachedIdentity{}
		return json.Unmarshal(v, id)
	})
	if err != nil {
		return nil, fmt.Errorf("read cached identity: %w", err)
	}
	if id != nil && id.User == nil {
		return nil, nil
	}
	return id, nil
}

func (c *BoltCache) Save(id *CachedIdentity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	db, err := c.open(false)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(identityBucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(IdentityKey), data)
	})
}

// Clear drops the cached identity and any saved cookies
func (c *BoltCache) Clear() error {
	if _, err := os.Stat(c.Path); os.IsNotExist(err) {
		return nil
	}
	db, err := c.open(false)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(cookieBucket)) != nil {
			if err := tx.DeleteBucket([]byte(cookieBucket)); err != nil {
				return err
			}
		}
		b := tx.Bucket([]byte(identityBucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(IdentityKey))
	})
}
