package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	dssync "github.com/ipfs/go-datastore/sync"
	badgerds "github.com/ipfs/go-ds-badger"
	"go.uber.org/atomic"
	"golang.org/x/xerrors"
)

var documentsPrefix = datastore.NewKey("/documents")

// DatastoreEngine keeps documents in an ipfs datastore, keyed by insertion
// sequence so that key order is insertion order.
type DatastoreEngine struct {
	ds  datastore.Batching
	mtx sync.Mutex
	seq *atomic.Uint64
}

func NewDatastoreEngine(ctx context.Context, ds datastore.Batching) (*DatastoreEngine, error) {
	res, err := ds.Query(ctx, query.Query{Prefix: documentsPrefix.String(), KeysOnly: true})
	if err != nil {
		return nil, err
	}
	entries, err := res.Rest()
	if err != nil {
		return nil, err
	}

	var last uint64
	for _, e := range entries {
		n, err := strconv.ParseUint(datastore.RawKey(e.Key).BaseNamespace(), 10, 64)
		if err != nil {
			log.Warnw("skipping foreign key", "key", e.Key)
			continue
		}
		if n > last {
			last = n
		}
	}

	return &DatastoreEngine{
		ds:  ds,
		seq: atomic.NewUint64(last),
	}, nil
}

// NewMemoryEngine is backed by a map and loses everything on exit.
func NewMemoryEngine() *DatastoreEngine {
	return &DatastoreEngine{
		ds:  dssync.MutexWrap(datastore.NewMapDatastore()),
		seq: atomic.NewUint64(0),
	}
}

// OpenBadger opens (creating when missing) a badger datastore at path.
func OpenBadger(ctx context.Context, path string) (*DatastoreEngine, error) {
	ds, err := badgerds.NewDatastore(path, &badgerds.DefaultOptions)
	if err != nil {
		return nil, xerrors.Errorf("open badger %s: %w", path, err)
	}
	e, err := NewDatastoreEngine(ctx, ds)
	if err != nil {
		ds.Close() //nolint:errcheck
		return nil, err
	}
	return e, nil
}

func documentKey(seq uint64) datastore.Key {
	return documentsPrefix.ChildString(fmt.Sprintf("%020d", seq))
}

func (e *DatastoreEngine) Insert(ctx context.Context, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return xerrors.Errorf("insert: %w", err)
	}

	e.mtx.Lock()
	defer e.mtx.Unlock()

	return e.ds.Put(ctx, documentKey(e.seq.Inc()), raw)
}

func (e *DatastoreEngine) scan(ctx context.Context, q Query, fn func(key datastore.Key, body []byte) (bool, error)) error {
	norm, err := normalizeQuery(q)
	if err != nil {
		return err
	}

	res, err := e.ds.Query(ctx, query.Query{
		Prefix: documentsPrefix.String(),
		Orders: []query.Order{query.OrderByKey{}},
	})
	if err != nil {
		return err
	}
	defer res.Close() //nolint:errcheck

	for r := range res.Next() {
		if r.Error != nil {
			return r.Error
		}
		if !matches(r.Value, norm) {
			continue
		}
		more, err := fn(datastore.RawKey(r.Key), r.Value)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

func (e *DatastoreEngine) Find(ctx context.Context, q Query) ([]Document, error) {
	var out []Document
	err := e.scan(ctx, q, func(_ datastore.Key, body []byte) (bool, error) {
		doc, err := decodeBody(body)
		if err != nil {
			return false, err
		}
		out = append(out, doc)
		return true, nil
	})
	if err != nil {
		return nil, xerrors.Errorf("find: %w", err)
	}
	return out, nil
}

func (e *DatastoreEngine) FindOne(ctx context.Context, q Query) (Document, error) {
	var out Document
	err := e.scan(ctx, q, func(_ datastore.Key, body []byte) (bool, error) {
		doc, err := decodeBody(body)
		if err != nil {
			return false, err
		}
		out = doc
		return false, nil
	})
	if err != nil {
		return nil, xerrors.Errorf("find one: %w", err)
	}
	return out, nil
}

func (e *DatastoreEngine) Update(ctx context.Context, q Query, set Document) (int, error) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	batch, err := e.ds.Batch(ctx)
	if err != nil {
		return 0, xerrors.Errorf("update: %w", err)
	}

	count := 0
	err = e.scan(ctx, q, func(key datastore.Key, body []byte) (bool, error) {
		raw, _, err := applySet(body, set)
		if err != nil {
			return false, err
		}
		if err := batch.Put(ctx, key, raw); err != nil {
			return false, err
		}
		count++
		return true, nil
	})
	if err != nil {
		return 0, xerrors.Errorf("update: %w", err)
	}

	if err := batch.Commit(ctx); err != nil {
		return 0, xerrors.Errorf("update: %w", err)
	}
	return count, nil
}

func (e *DatastoreEngine) Close() error {
	return e.ds.Close()
}
