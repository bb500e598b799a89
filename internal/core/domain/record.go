package domain

// Record is the uniform representation of a stored resource document. Keys
// are field names as declared by the kind's schema; the store guarantees an
// "id" key on every record it returns.
type Record map[string]any

// ID returns the record's id, or 0 when the record has not been stored yet.
func (r Record) ID() int64 {
	id, _ := r.Int64("id")
	return id
}

// Int64 reads an integral field. JSON decoding delivers numbers as float64,
// so both representations are accepted.
func (r Record) Int64(key string) (int64, bool) {
	switch v := r[key].(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Clone returns a shallow copy; nested values are shared.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
