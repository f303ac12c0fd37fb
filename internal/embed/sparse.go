package embed

import (
	"hash/fnv"
	"math"
	"regexp"
	"sort"
	"strings"
)

// SparseDim is the shared sparse dimension for documents and queries. Both
// sides must hash into the same space or hybrid scoring is meaningless.
const SparseDim = 1 << 18

// SparseVector is a keyword vector in (indices, values) form
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float64 `json:"values"`
}

var tokenRe = regexp.MustCompile(`\w+`)

func tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

func tokenIndex(token string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(token))
	return h.Sum32() % SparseDim
}

// EncodeSparseDoc encodes document text: term frequencies aggregated by index,
// value = 1 + log(tf), indices sorted ascending
func EncodeSparseDoc(text string) SparseVector {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return SparseVector{}
	}
	tf := make(map[uint32]int)
	for _, t := range tokens {
		tf[tokenIndex(t)]++
	}
	indices := make([]uint32, 0, len(tf))
	for idx := range tf {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	values := make([]float64, len(indices))
	for i, idx := range indices {
		v := 1.0
		if tf[idx] > 1 {
			v += math.Log(float64(tf[idx]))
		}
		values[i] = v
	}
	return SparseVector{Indices: indices, Values: values}
}

// EncodeSparseQuery encodes query text: 1.0 per unique token, first-seen order
func EncodeSparseQuery(text string) SparseVector {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return SparseVector{}
	}
	seen := make(map[uint32]struct{})
	var out SparseVector
	for _, t := range tokens {
		idx := tokenIndex(t)
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out.Indices = append(out.Indices, idx)
		out.Values = append(out.Values, 1.0)
	}
	return out
}
