package domain

// Zero overwrites key material in place. Safe on nil.
func Zero(b []byte) {
	clear(b)
}

// cloneKey returns an independent copy of key material so the caller can zero
// its own buffer without affecting the holder of the copy.
func cloneKey(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
