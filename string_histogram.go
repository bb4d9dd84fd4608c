package godb

import boom "github.com/tylertreat/BoomFilters"

// StringHistogram estimates selectivity over a string field. Unlike
// IntHistogram's range buckets, string domains have no natural ordering
// to bucket by width, so equality selectivity is approximated with a
// count-min sketch (never undercounts, may overcount on hash collision)
// and every other BoolOp falls back to a fixed fraction of total rows.
type StringHistogram struct {
	cms *boom.CountMinSketch
}

// NewStringHistogram builds an empty string histogram. The epsilon/delta
// pair bounds the sketch's overcount error to within 0.1% with 99.9%
// probability.
func NewStringHistogram() *StringHistogram {
	cms := boom.NewCountMinSketch(0.001, 0.999)
	return &StringHistogram{cms}
}

// AddValue records one occurrence of s.
func (h *StringHistogram) AddValue(s string) {
	h.cms.Add([]byte(s))
}

// EstimateSelectivity returns the estimated fraction of tuples for which
// field OP s holds.
func (h *StringHistogram) EstimateSelectivity(op BoolOp, s string) float64 {
	total := h.cms.TotalCount()
	if total == 0 {
		return 0
	}
	switch op {
	case OpEq:
		return float64(h.cms.Count([]byte(s))) / float64(total)
	case OpNe:
		return 1 - float64(h.cms.Count([]byte(s)))/float64(total)
	case OpGt, OpGe, OpLt, OpLe:
		// No ordering information is tracked; return a fixed guess of
		// 0.3 regardless of the value.
		return 0.3
	}
	return 0
}
