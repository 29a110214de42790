package expand

import (
	"github.com/tablemateio/airlink/internal/record"
)

// mergeField writes expanded children back onto one field of a record.
// children holds *record.Record values for inlined records and plain
// strings for placeholders and failed fetches, in source order. When
// retainIDs is set the raw identifier list survives under the suffixed
// key while the primary field holds the expanded list.
//
// Only the named field (and its suffixed companion) is touched; the
// caller is expected to pass a copy when the input record must stay
// intact.
//
// AL-P3-F3-T1: replace raw ids with expanded children
// AL-P3-F3-T2: optional retention of the original id list
func mergeField(out *record.Record, field string, children []interface{}, originalIDs []string, retainIDs bool) {
	out.Set(field, children)

	if retainIDs {
		ids := make([]string, len(originalIDs))
		copy(ids, originalIDs)
		out.Set(field+OriginalIDsSuffix, ids)
	}
}
