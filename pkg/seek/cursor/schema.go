package cursor

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Schema versions:
// 1 - Initial version (volume cursors)
const CurrentSchemaVersion = 1

const schemaKey = prefixMeta + "__schema__"

// ErrSchemaTooNew is returned when the store was written by a newer seek.
var ErrSchemaTooNew = errors.New("cursor store schema is newer than supported")

// Schema holds database schema information.
type Schema struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetSchema returns the current schema version, or nil if not set.
func (s *Store) GetSchema() *Schema {
	var schema *Schema

	_ = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			schema = &Schema{}
			return json.Unmarshal(val, schema)
		})
	})

	return schema
}

func (s *Store) setSchema(schema *Schema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(schemaKey), data)
	})
}

// ensureSchema stamps a fresh store and refuses one from a newer version.
func (s *Store) ensureSchema() error {
	schema := s.GetSchema()
	if schema == nil {
		return s.setSchema(&Schema{Version: CurrentSchemaVersion, UpdatedAt: time.Now()})
	}
	if schema.Version > CurrentSchemaVersion {
		return fmt.Errorf("%w: version %d", ErrSchemaTooNew, schema.Version)
	}
	return nil
}
