package embed

import (
	"math"
	"testing"
)

func TestEncodeSparseDoc_TermFrequency(t *testing.T) {
	v := EncodeSparseDoc("budget budget budget review")
	if len(v.Indices) != 2 {
		t.Fatalf("Expected 2 distinct indices, got %d", len(v.Indices))
	}
	if len(v.Indices) != len(v.Values) {
		t.Fatalf("Indices/values length mismatch: %d vs %d", len(v.Indices), len(v.Values))
	}

	// One term has tf=3 (value 1+ln 3), the other tf=1 (value 1)
	want3 := 1 + math.Log(3)
	found3, found1 := false, false
	for _, val := range v.Values {
		if math.Abs(val-want3) < 1e-9 {
			found3 = true
		}
		if val == 1.0 {
			found1 = true
		}
	}
	if !found3 || !found1 {
		t.Errorf("Expected values {1, 1+ln3}, got %v", v.Values)
	}

	// Indices are sorted ascending
	for i := 1; i < len(v.Indices); i++ {
		if v.Indices[i-1] >= v.Indices[i] {
			t.Errorf("Indices not sorted: %v", v.Indices)
		}
	}
}

func TestEncodeSparseQuery_UnitValues(t *testing.T) {
	v := EncodeSparseQuery("budget budget review")
	if len(v.Indices) != 2 {
		t.Fatalf("Expected 2 indices, got %d", len(v.Indices))
	}
	for _, val := range v.Values {
		if val != 1.0 {
			t.Errorf("Query values must be 1.0, got %v", v.Values)
		}
	}
}

func TestSparse_DocAndQueryShareIndexSpace(t *testing.T) {
	doc := EncodeSparseDoc("quarterly budget")
	query := EncodeSparseQuery("budget")
	if len(query.Indices) != 1 {
		t.Fatalf("Expected 1 query index, got %d", len(query.Indices))
	}
	found := false
	for _, idx := range doc.Indices {
		if idx == query.Indices[0] {
			found = true
		}
	}
	if !found {
		t.Error("Query token did not hash to the same index as the doc token")
	}
}

func TestSparse_CaseInsensitive(t *testing.T) {
	a := EncodeSparseQuery("Budget")
	b := EncodeSparseQuery("budget")
	if a.Indices[0] != b.Indices[0] {
		t.Error("Tokenization should be case-insensitive")
	}
}

func TestSparse_EmptyText(t *testing.T) {
	if v := EncodeSparseDoc("   "); len(v.Indices) != 0 {
		t.Errorf("Expected empty vector for blank doc, got %v", v.Indices)
	}
	if v := EncodeSparseQuery(""); len(v.Indices) != 0 {
		t.Errorf("Expected empty vector for blank query, got %v", v.Indices)
	}
}

func TestSparse_IndicesWithinDimension(t *testing.T) {
	v := EncodeSparseDoc("the quick brown fox jumps over the lazy dog")
	for _, idx := range v.Indices {
		if idx >= SparseDim {
			t.Errorf("Index %d outside sparse dimension %d", idx, SparseDim)
		}
	}
}
