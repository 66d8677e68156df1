package ingredient

// FlairTable is the fixed list of flair tokens a record's Flair indexes into.
type FlairTable []string

func (t FlairTable) Len() int { return len(t) }

// Token falls back to the first flair for out-of-range indices.
func (t FlairTable) Token(i int) string {
	if len(t) == 0 {
		return ""
	}
	if i < 0 || i >= len(t) {
		return t[0]
	}
	return t[i]
}
