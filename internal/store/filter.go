package store

import (
	"fmt"
	"strings"
)

// Filter maps a metadata field to an operator set, Pinecone style:
//
//	{"source": {"$eq": "handbook.pdf"}, "chunkIndex": {"$gte": 2}}
//
// Supported operators are $eq, $gte and $lte. Unknown fields or operators
// are dropped rather than failing the query: a filter that translates to
// nothing behaves as "no filter".
type Filter map[string]map[string]any

var filterColumns = map[string]string{
	"source":     "source",
	"title":      "title",
	"summary":    "summary",
	"chunkIndex": "chunk_index",
	"timestamp":  "ingested_at",
}

var filterOps = map[string]string{
	"$eq":  "=",
	"$gte": ">=",
	"$lte": "<=",
}

// toSQL renders the filter as a WHERE fragment with positional parameters
// starting at argIndex. Always returns at least "TRUE".
func (f Filter) toSQL(argIndex int) (string, []any) {
	clauses := []string{"TRUE"}
	var args []any
	for _, field := range []string{"source", "title", "summary", "chunkIndex", "timestamp"} {
		ops, ok := f[field]
		if !ok {
			continue
		}
		col := filterColumns[field]
		for _, op := range []string{"$eq", "$gte", "$lte"} {
			val, ok := ops[op]
			if !ok {
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s %s $%d", col, filterOps[op], argIndex))
			args = append(args, val)
			argIndex++
		}
	}
	return strings.Join(clauses, " AND "), args
}

// BySource builds the filter used by per-document deletion.
func BySource(source string) Filter {
	return Filter{"source": {"$eq": source}}
}
