package domain

// BatchResult is the outcome of a record-level encrypt or decrypt.
//
// Record is a copy of the input with every successfully processed field replaced. Fields
// listed in Errors keep their input value.
type BatchResult struct {
	Record map[string]any
	Errors map[string]error
}

// Failed reports whether any field failed.
func (b *BatchResult) Failed() bool {
	return len(b.Errors) > 0
}
