package schema

// RowSet is the result of fetching one table. Row order is the order the
// store returned and is significant for display and export.
type RowSet []Record

// Columns derives the column set of the row set.
//
// Policy: the first record defines the columns. The column set is the key
// order of RowSet[0] if there is one, otherwise empty. Later records are
// assumed to have the same keys; this is not verified, and keys that only
// appear in later records are never shown.
func (rs RowSet) Columns() []string {
	if len(rs) == 0 {
		return []string{}
	}
	keys := rs[0].Keys()
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

func (rs RowSet) Len() int {
	return len(rs)
}
