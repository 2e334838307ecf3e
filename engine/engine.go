package engine

import (
	"context"
	"encoding/json"
	"reflect"

	logging "github.com/ipfs/go-log/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/xerrors"
)

var log = logging.Logger("engine")

// Document is a stored record. Values are kept in their JSON form, so a
// document read back compares equal to the one written.
type Document map[string]interface{}

// Query selects documents whose fields equal every given value. Keys may be
// dotted paths into nested fields.
type Query map[string]interface{}

// Engine is the persistence substrate shared by the channel, payment and
// token ledgers.
type Engine interface {
	Insert(ctx context.Context, doc Document) error
	// Find returns matching documents in insertion order.
	Find(ctx context.Context, q Query) ([]Document, error)
	// FindOne returns the first match, or nil when nothing matches.
	FindOne(ctx context.Context, q Query) (Document, error)
	// Update sets the given fields on every match and returns the number of
	// documents touched.
	Update(ctx context.Context, q Query, set Document) (int, error)
	Close() error
}

// Encode turns any JSON-serialisable value into a Document.
func Encode(v interface{}) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, xerrors.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, xerrors.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// Decode fills out from a Document.
func Decode(doc Document, out interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return xerrors.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return xerrors.Errorf("decode document: %w", err)
	}
	return nil
}

// Merge returns a copy of q with the fields of over applied on top.
func (q Query) Merge(over Query) Query {
	out := make(Query, len(q)+len(over))
	for k, v := range q {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

func normalizeQuery(q Query) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(q))
	for k, v := range q {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, xerrors.Errorf("query field %s: %w", k, err)
		}
		var norm interface{}
		if err := json.Unmarshal(raw, &norm); err != nil {
			return nil, xerrors.Errorf("query field %s: %w", k, err)
		}
		out[k] = norm
	}
	return out, nil
}

func matches(body []byte, q map[string]interface{}) bool {
	for k, want := range q {
		got := gjson.GetBytes(body, k)
		if !got.Exists() {
			return false
		}
		if !reflect.DeepEqual(got.Value(), want) {
			return false
		}
	}
	return true
}

func applySet(body []byte, set Document) ([]byte, Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, nil, err
	}
	norm, err := Encode(set)
	if err != nil {
		return nil, nil, err
	}
	for k, v := range norm {
		doc[k] = v
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	return raw, doc, nil
}

func decodeBody(body []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, xerrors.Errorf("corrupt document: %w", err)
	}
	return doc, nil
}
