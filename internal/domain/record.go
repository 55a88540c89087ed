package domain

// Record is one knowledge-base row. Ordinal is its 0-based position in the
// source file and breaks similarity ties.
type Record struct {
	Ordinal int
	Text    string
}

// Hit is a record matched by a similarity search.
type Hit struct {
	Record Record
	Score  float64
}

// Texts returns the record texts of hits in order.
func Texts(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Record.Text
	}
	return out
}
