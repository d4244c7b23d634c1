package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Velocidex/ordereddict"
	"github.com/pkg/errors"
)

// Record is a single row: column names mapped to opaque cell values. Keys
// keep the order in which they were set, which for rows read from a store is
// the order of rows.Columns().
type Record struct {
	dict *ordereddict.Dict
}

func NewRecord() Record {
	return Record{dict: ordereddict.NewDict()}
}

// RecordOf builds a record from alternating key, value arguments. It panics
// if a key is not a string, so it should only be used with literals.
func RecordOf(kv ...interface{}) Record {
	if len(kv)%2 != 0 {
		panic("RecordOf: odd number of arguments")
	}
	r := NewRecord()
	for i := 0; i < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}

func (r *Record) Set(key string, value interface{}) {
	if r.dict == nil {
		r.dict = ordereddict.NewDict()
	}
	r.dict.Set(key, value)
}

func (r Record) Get(key string) (interface{}, bool) {
	if r.dict == nil {
		return nil, false
	}
	return r.dict.Get(key)
}

// Keys returns the column names in insertion order.
func (r Record) Keys() []string {
	if r.dict == nil {
		return nil
	}
	return r.dict.Keys()
}

func (r Record) Len() int {
	return len(r.Keys())
}

// Text returns the cell for key rendered as text. Absent keys render
// as the empty string.
func (r Record) Text(key string) string {
	value, _ := r.Get(key)
	return CellText(value)
}

func (r Record) MarshalJSON() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte('{')
	for i, key := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		value, _ := r.Get(key)
		// binary cells travel as their text, not base64
		if b, ok := value.([]byte); ok {
			value = CellText(b)
		}
		vb, err := json.Marshal(value)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal column %q", key)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the key order of the
// document. Numbers are kept as json.Number so that their text survives
// unchanged; nested values decode the usual way.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}
	rec := NewRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected key, got %v", tok)
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return errors.Wrapf(err, "decode column %q", key)
		}
		rec.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = rec
	return nil
}
