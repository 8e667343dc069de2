// QueryBuilder assembles a Query: where-clauses with exclusive-bound
// rewriting (§4.6), filter tree, sort/distinct keys, and offset/limit.
package embedb

// QueryBuilder accumulates a Query's pieces before Build.
type QueryBuilder struct {
	col       *Collection
	clauses   []WhereClause
	filter    Filter
	sorts     []SortKey
	distincts []DistinctKey
	offset    int
	limit     int
}

// NewQueryBuilder starts building a query over c.
func (c *Collection) NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{col: c}
}

// WhereID adds an id where-clause, rewriting exclusive bounds to inclusive
// ones via nextLong/prevLong. If an exclusive bound sits at MinID/MaxID the
// clause collapses to an always-empty range, matching §4.6's "reduced to
// the empty static filter" rule.
func (qb *QueryBuilder) WhereID(lower int64, lowerInclusive bool, upper int64, upperInclusive bool, order SortOrder) *QueryBuilder {
	ok := true
	if !lowerInclusive {
		lower, ok = nextLong(lower, true)
	}
	if ok && !upperInclusive {
		upper, ok = prevLong(upper, true)
	}
	if !ok {
		qb.clauses = append(qb.clauses, IdWhereClause{ColID: qb.col.ID, Lower: 1, Upper: 0})
		return qb
	}
	qb.clauses = append(qb.clauses, IdWhereClause{ColID: qb.col.ID, Lower: lower, Upper: upper, Sort: order})
	return qb
}

// findIndex resolves an index by the name of its property list (see
// schema.go's AddIndex, which stores that as IndexSchema.Name).
func (qb *QueryBuilder) findIndex(indexName string) *Index {
	for _, ix := range qb.col.Indexes {
		if ix.Schema.Name == indexName {
			return ix
		}
	}
	return nil
}

// WhereIndex adds an index where-clause over ix, built from lower/upper
// value tuples (one value per index property, in order). Only the last
// (terminal) value may use an exclusive bound and only when its type is a
// fixed-width scalar; exclusive string bounds are not adjusted (§4.6 scopes
// next/prev to "integers ... floats").
func (qb *QueryBuilder) WhereIndex(indexName string, lowerValues []any, lowerInclusive bool, upperValues []any, upperInclusive bool, skipDuplicates bool, order SortOrder) *QueryBuilder {
	ix := qb.findIndex(indexName)
	if ix == nil {
		qb.clauses = append(qb.clauses, IdWhereClause{ColID: qb.col.ID, Lower: 1, Upper: 0})
		return qb
	}

	lowerKey, lok := buildIndexKey(ix, lowerValues, lowerInclusive, false)
	upperKey, uok := buildIndexKey(ix, upperValues, upperInclusive, true)
	if !lok || !uok {
		qb.clauses = append(qb.clauses, IdWhereClause{ColID: qb.col.ID, Lower: 1, Upper: 0})
		return qb
	}

	qb.clauses = append(qb.clauses, IndexWhereClause{
		ColID:          qb.col.ID,
		IndexID:        ix.Schema.ID,
		Unique:         ix.Schema.Unique,
		LowerKey:       lowerKey,
		UpperKey:       upperKey,
		SkipDuplicates: skipDuplicates,
		Sort:           order,
	})
	return qb
}

// buildIndexKey encodes one bound of an index range. isUpper selects
// next/prev direction when the terminal value needs exclusive adjustment.
func buildIndexKey(ix *Index, values []any, inclusive bool, isUpper bool) ([]byte, bool) {
	buf := encodeIndexPrefix(ix.Schema.ID)
	n := len(ix.Properties)
	for i := 0; i < n && i < len(values); i++ {
		p := ix.Properties[i]
		isTerminal := i == n-1
		v := values[i]
		if isTerminal && !inclusive {
			adjusted, ok := adjustBound(p, v, isUpper)
			if !ok {
				return nil, false
			}
			v = adjusted
		}
		buf = append(buf, encodeValue(p, v, ix.Schema.CaseSensitive, ix.Schema.Type, ix.HashAlg)...)
	}
	return buf, true
}

// adjustBound steps a scalar value to its next/prev representable value,
// turning an exclusive bound into an inclusive one.
func adjustBound(p Property, v any, isUpper bool) (any, bool) {
	switch p.DataType {
	case Byte:
		b := v.(byte)
		if isUpper {
			return prevByte(b, true)
		}
		return nextByte(b, true)
	case Int:
		x := v.(int32)
		if isUpper {
			return prevInt(x, true)
		}
		return nextInt(x, true)
	case Long:
		x := v.(int64)
		if isUpper {
			return prevLong(x, true)
		}
		return nextLong(x, true)
	case Float:
		x := v.(float32)
		if isUpper {
			return prevFloat(x, true)
		}
		return nextFloat(x, true)
	case Double:
		x := v.(float64)
		if isUpper {
			return prevDouble(x, true)
		}
		return nextDouble(x, true)
	default:
		return v, true
	}
}

// encodeValue mirrors encodeProp but takes a literal Go value rather than
// reading one from an Object, for query-builder bound construction.
func encodeValue(p Property, v any, caseSensitive bool, idxType IndexType, alg HashAlgorithm) []byte {
	switch p.DataType {
	case Byte:
		return encodeByte(v.(byte), false)
	case Int:
		return encodeInt(v.(int32))
	case Long:
		return encodeLong(v.(int64))
	case Float:
		return encodeFloat(v.(float32), false)
	case Double:
		return encodeDouble(v.(float64), false)
	case String:
		s, ok := v.(string)
		present := ok
		switch idxType {
		case IndexHash:
			return encodeStringHash(s, present, caseSensitive, alg)
		case IndexWords:
			return encodeStringWord(s, caseSensitive)
		default:
			return encodeStringValue(s, present, caseSensitive)
		}
	default:
		return nil
	}
}

// Where adds a filter that is ANDed with any filter already set.
func (qb *QueryBuilder) Where(f Filter) *QueryBuilder {
	if qb.filter == nil {
		qb.filter = f
		return qb
	}
	qb.filter = AndFilter{Children: []Filter{qb.filter, f}}
	return qb
}

func (qb *QueryBuilder) SortBy(p Property, order SortOrder) *QueryBuilder {
	qb.sorts = append(qb.sorts, SortKey{Property: p, Order: order})
	return qb
}

func (qb *QueryBuilder) DistinctBy(p Property, caseSensitive bool) *QueryBuilder {
	qb.distincts = append(qb.distincts, DistinctKey{Property: p, CaseSensitive: caseSensitive})
	return qb
}

func (qb *QueryBuilder) SetOffset(n int) *QueryBuilder { qb.offset = n; return qb }
func (qb *QueryBuilder) SetLimit(n int) *QueryBuilder  { qb.limit = n; return qb }

// Build finalizes the Query.
func (qb *QueryBuilder) Build() *Query {
	return &Query{
		Collection: qb.col,
		Clauses:    qb.clauses,
		Filter:     qb.filter,
		Sorts:      qb.sorts,
		Distincts:  qb.distincts,
		Offset:     qb.offset,
		Limit:      qb.limit,
	}
}
