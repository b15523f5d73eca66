package snapshot

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/dbsmedya/schemacheck/internal/types"
)

// SortRows orders rows by the given key columns using types.Compare, so
// text sorts bytewise whatever the database collation. Rows equal on every
// key column fall back to their canonical encoding, which makes the order
// independent of the input order.
func SortRows(rows []types.Row, key []string) {
	if len(rows) < 2 {
		return
	}

	var canonical map[int]string
	encoded := func(i int, r types.Row) string {
		if canonical == nil {
			canonical = make(map[int]string)
		}
		if s, ok := canonical[i]; ok {
			return s
		}
		data, _ := json.Marshal(r)
		canonical[i] = string(data)
		return canonical[i]
	}

	// Sort an index so cached encodings stay attached to their rows.
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(x, y int) bool {
		a, b := rows[idx[x]], rows[idx[y]]
		for _, col := range key {
			if c := types.Compare(a[col], b[col]); c != 0 {
				return c < 0
			}
		}
		return strings.Compare(encoded(idx[x], a), encoded(idx[y], b)) < 0
	})

	sorted := make([]types.Row, len(rows))
	for i, j := range idx {
		sorted[i] = rows[j]
	}
	copy(rows, sorted)
}
