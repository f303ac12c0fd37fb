package rag

import (
	"testing"

	"github.com/mkravets/minuta/internal/model"
)

func TestValidateCitations_ExactMatch(t *testing.T) {
	allowed := []model.AllowedRange{{File: "t.txt", LineStart: 1, LineEnd: 8}}
	accepted, refused := ValidateCitations([]model.Citation{{File: "t.txt", LineStart: 1, LineEnd: 8}}, allowed)
	if refused || len(accepted) != 1 {
		t.Fatalf("Expected acceptance, got refused=%v accepted=%v", refused, accepted)
	}
}

func TestValidateCitations_ClampsToIntersection(t *testing.T) {
	allowed := []model.AllowedRange{{File: "t.txt", LineStart: 90, LineEnd: 102}}
	accepted, refused := ValidateCitations([]model.Citation{{File: "t.txt", LineStart: 100, LineEnd: 105}}, allowed)
	if refused {
		t.Fatal("Overlapping citation must survive")
	}
	want := model.Citation{File: "t.txt", LineStart: 100, LineEnd: 102}
	if len(accepted) != 1 || accepted[0] != want {
		t.Errorf("Got %+v, want %+v", accepted, want)
	}
}

func TestValidateCitations_DropsNonOverlapping(t *testing.T) {
	allowed := []model.AllowedRange{{File: "t.txt", LineStart: 1, LineEnd: 8}}
	proposed := []model.Citation{
		{File: "t.txt", LineStart: 9, LineEnd: 16},  // Adjacent, no overlap
		{File: "other.txt", LineStart: 1, LineEnd: 8}, // Wrong file
	}
	accepted, refused := ValidateCitations(proposed, allowed)
	if !refused || len(accepted) != 0 {
		t.Errorf("Expected refusal, got refused=%v accepted=%v", refused, accepted)
	}
}

func TestValidateCitations_PartialSurvivors(t *testing.T) {
	allowed := []model.AllowedRange{{File: "t.txt", LineStart: 1, LineEnd: 8}}
	proposed := []model.Citation{
		{File: "t.txt", LineStart: 200, LineEnd: 210},
		{File: "t.txt", LineStart: 4, LineEnd: 6},
	}
	accepted, refused := ValidateCitations(proposed, allowed)
	if refused || len(accepted) != 1 {
		t.Fatalf("One survivor expected, got refused=%v accepted=%v", refused, accepted)
	}
	if accepted[0].LineStart != 4 || accepted[0].LineEnd != 6 {
		t.Errorf("Citation inside the range must pass unclamped: %+v", accepted[0])
	}
}

func TestValidateCitations_DeduplicatesAfterClamping(t *testing.T) {
	allowed := []model.AllowedRange{{File: "t.txt", LineStart: 10, LineEnd: 20}}
	// Both clamp to 10-20
	proposed := []model.Citation{
		{File: "t.txt", LineStart: 5, LineEnd: 25},
		{File: "t.txt", LineStart: 8, LineEnd: 22},
	}
	accepted, _ := ValidateCitations(proposed, allowed)
	if len(accepted) != 1 {
		t.Errorf("Expected 1 citation after dedupe, got %+v", accepted)
	}
}

func TestValidateCitations_EmptyProposedRefuses(t *testing.T) {
	allowed := []model.AllowedRange{{File: "t.txt", LineStart: 1, LineEnd: 8}}
	_, refused := ValidateCitations(nil, allowed)
	if !refused {
		t.Error("No citations at all must refuse")
	}
}

func TestValidateCitations_NeverWidens(t *testing.T) {
	allowed := []model.AllowedRange{{File: "t.txt", LineStart: 10, LineEnd: 50}}
	accepted, _ := ValidateCitations([]model.Citation{{File: "t.txt", LineStart: 20, LineEnd: 30}}, allowed)
	if len(accepted) != 1 || accepted[0].LineStart != 20 || accepted[0].LineEnd != 30 {
		t.Errorf("Clamping must never widen a citation: %+v", accepted)
	}
}
