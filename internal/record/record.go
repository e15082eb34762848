// Package record defines the metadata record that is sealed into a document.
// A Record is an ordered string map: the order in which keys were inserted is
// part of the signed bytes, so it is preserved through every copy, update and
// parse.
package record

import (
	"errors"
	"fmt"
	"time"
)

// Reserved keys appended by Build after all caller supplied fields.
const (
	KeyID        = "id"
	KeyUploaded  = "uploaded_at"
	KeyVerifyURL = "verify_url"
	KeySignature = "signature"

	// KeyOriginalFilename is injected by the upload layers before Build.
	KeyOriginalFilename = "original_filename"
)

// Placeholder is the sentinel held by the signature field while the record is
// hashed. It is never a valid base64 signature.
const Placeholder = "FIRMA_PENDIENTE"

// TimeLayout is the format of the uploaded_at field (UTC, second precision).
const TimeLayout = "2006-01-02T15:04:05Z"

var (
	// ErrReservedKey is returned when caller metadata uses a key that Build
	// appends itself.
	ErrReservedKey = errors.New("reserved metadata key")
	// ErrMissingSignatureKey means the record has no signature slot to fill.
	ErrMissingSignatureKey = errors.New("record has no signature key")
	// ErrMalformed is returned by Parse for anything but a flat JSON object of
	// strings.
	ErrMalformed = errors.New("malformed metadata record")
)

var reserved = map[string]bool{
	KeyID:        true,
	KeyUploaded:  true,
	KeyVerifyURL: true,
	KeySignature: true,
}

// IsReserved reports whether key is appended by Build.
func IsReserved(key string) bool {
	return reserved[key]
}

// Field is a single key/value pair of a Record.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Record is an insertion ordered mapping of string keys to string values. The
// zero value is an empty record ready to use.
type Record struct {
	fields []Field
	index  map[string]int
}

// New returns an empty record.
func New() *Record {
	return &Record{}
}

// FromFields builds a record from fields in order. A repeated key updates the
// value of its first occurrence.
func FromFields(fields ...Field) *Record {
	r := New()
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

// Set binds key to value. Existing keys keep their position.
func (r *Record) Set(key, value string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[key]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, Field{Key: key, Value: value})
}

// Get returns the value bound to key.
func (r *Record) Get(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	i, ok := r.index[key]
	if !ok {
		return "", false
	}
	return r.fields[i].Value, true
}

// Value returns the value bound to key or the empty string.
func (r *Record) Value(key string) string {
	v, _ := r.Get(key)
	return v
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}

// Fields returns a copy of the fields in order.
func (r *Record) Fields() []Field {
	if r == nil {
		return nil
	}
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Keys returns the keys in order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// Map returns an unordered copy, convenient for templates and lookups.
func (r *Record) Map() map[string]string {
	out := make(map[string]string, r.Len())
	if r == nil {
		return out
	}
	for _, f := range r.fields {
		out[f.Key] = f.Value
	}
	return out
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return New()
	}
	return FromFields(r.fields...)
}

// Equal reports whether both records hold the same keys in the same order with
// the same values.
func (r *Record) Equal(other *Record) bool {
	if r.Len() != other.Len() {
		return false
	}
	for i, f := range r.Fields() {
		if other.fields[i] != f {
			return false
		}
	}
	return true
}

// Build assembles the record to be sealed: every caller field in its original
// order, followed by id, uploaded_at, verify_url and a placeholder signature.
// Caller fields named like a reserved key are rejected rather than silently
// overwritten.
func Build(fields *Record, id string, uploadedAt time.Time, verifyURL string) (*Record, error) {
	out := New()
	for _, f := range fields.Fields() {
		if IsReserved(f.Key) {
			return nil, fmt.Errorf("caller field %q: %w", f.Key, ErrReservedKey)
		}
		out.Set(f.Key, f.Value)
	}
	out.Set(KeyID, id)
	out.Set(KeyUploaded, uploadedAt.UTC().Format(TimeLayout))
	out.Set(KeyVerifyURL, verifyURL)
	out.Set(KeySignature, Placeholder)
	return out, nil
}

// WithSignature returns a copy of r whose signature value is sig. The key keeps
// its position; it is never removed and appended again.
func (r *Record) WithSignature(sig string) (*Record, error) {
	if !r.Has(KeySignature) {
		return nil, ErrMissingSignatureKey
	}
	out := r.Clone()
	out.Set(KeySignature, sig)
	return out, nil
}

// Signed reports whether the signature field holds something other than the
// placeholder or the empty string.
func (r *Record) Signed() bool {
	sig := r.Value(KeySignature)
	return sig != "" && sig != Placeholder
}
