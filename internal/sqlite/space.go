package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/kvgraph/internal/keyspace"
)

// space is a keyspace.Space backed by one SQL transaction.
type space struct {
	ctx context.Context
	tx  *sql.Tx
}

func (sp *space) Load(key string) (*keyspace.Value, error) {
	var (
		kind int
		data string
	)
	err := sp.tx.QueryRowContext(sp.ctx, selectEntry, key).Scan(&kind, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", key)
	}
	v := &keyspace.Value{}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return nil, errors.Wrapf(err, "decode %s", key)
	}
	v.Kind = keyspace.Kind(kind)
	return v, nil
}

func (sp *space) Store(key string, v *keyspace.Value) error {
	if v.Empty() {
		_, err := sp.tx.ExecContext(sp.ctx, deleteEntry, key)
		return errors.Wrapf(err, "delete %s", key)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	_, err = sp.tx.ExecContext(sp.ctx, upsertEntry, key, int(v.Kind), string(data))
	return errors.Wrapf(err, "store %s", key)
}

func (sp *space) Keys() ([]string, error) {
	rows, err := sp.tx.QueryContext(sp.ctx, selectKeys)
	if err != nil {
		return nil, errors.Wrap(err, "list keys")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
