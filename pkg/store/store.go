// Package store persists the configs produced by keygen sessions in a bbolt database.
package store

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/taurusgroup/cmp-keygen/internal/types"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
	"github.com/taurusgroup/cmp-keygen/pkg/party"
	"github.com/taurusgroup/cmp-keygen/protocols/cmp/config"
)

const (
	FileName = "keygen.db"
	OpenPerm = 0660
	DirPerm  = 0755
)

var configBucket = []byte("configs")

var (
	ErrNotFound = errors.New("store: config not found")
	ErrExists   = errors.New("store: config already stored")
)

// Store holds configs keyed by the RID of the keygen and the party ID.
type Store struct {
	sync.Mutex
	db  *bolt.DB
	log zerolog.Logger
}

// Open creates or opens the database in dir.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return nil, err
	}
	db, err := bolt.Open(filepath.Join(dir, FileName), OpenPerm, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(configBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: %w", err)
	}

	return &Store{
		db:  db,
		log: log.With().Str("store", dir).Logger(),
	}, nil
}

func key(rid types.RID, id party.ID) []byte {
	return []byte(hex.EncodeToString(rid) + "/" + string(id))
}

// Save stores c. Configs are never overwritten.
func (s *Store) Save(c *config.Config) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	data, err := cbor.Marshal(c)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	s.Lock()
	defer s.Unlock()
	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(configBucket)
		k := key(c.RID, c.ID)
		if bucket.Get(k) != nil {
			return fmt.Errorf("%w: %s", ErrExists, k)
		}
		return bucket.Put(k, data)
	})
	if err != nil {
		return err
	}
	s.log.Debug().Stringer("rid", c.RID).Str("party", string(c.ID)).Msg("saved config")
	return nil
}

// Load returns the config of party id for the keygen identified by rid.
func (s *Store) Load(rid types.RID, id party.ID) (*config.Config, error) {
	var c *config.Config
	err := s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(configBucket).Get(key(rid, id))
		if value == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, rid, id)
		}
		var err error
		c, err = decode(value)
		return err
	})
	return c, err
}

// List returns all stored configs, ordered by RID then party ID.
// If rid is not nil, only the configs of that keygen are returned.
func (s *Store) List(rid types.RID) ([]*config.Config, error) {
	var configs []*config.Config
	err := s.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(configBucket).Cursor()
		var prefix []byte
		if rid != nil {
			prefix = []byte(hex.EncodeToString(rid) + "/")
		}
		k, v := cursor.First()
		if prefix != nil {
			k, v = cursor.Seek(prefix)
		}
		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			c, err := decode(v)
			if err != nil {
				return fmt.Errorf("store: %s: %w", k, err)
			}
			configs = append(configs, c)
		}
		return nil
	})
	return configs, err
}

func decode(data []byte) (*config.Config, error) {
	c := config.EmptyConfig(curve.Secp256k1{})
	if err := cbor.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		s.log.Error().Err(err).Msg("failed to close store")
		return err
	}
	return nil
}
