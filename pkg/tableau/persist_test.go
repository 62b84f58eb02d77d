package tableau

import (
	"context"
	"testing"
)

func buildSampleSession(t *testing.T) (*Session, BP, BP) {
	t.Helper()
	s := NewSession(DefaultConfig())
	animal, err := s.Declare("Animal")
	if err != nil {
		t.Fatalf("Declare(Animal): %v", err)
	}
	dog, err := s.Declare("Dog")
	if err != nil {
		t.Fatalf("Declare(Dog): %v", err)
	}
	s.ImpliesConcepts(dog, animal)
	return s, dog, animal
}

func TestPersistRoundTrip(t *testing.T) {
	s, dog, animal := buildSampleSession(t)

	sat, err := s.IsSubsumedBy(context.Background(), dog, animal)
	if err != nil {
		t.Fatalf("IsSubsumedBy before save: %v", err)
	}
	if !sat {
		t.Fatalf("Dog subsumed by Animal before save = false, want true")
	}

	blob, err := s.SaveBytes()
	if err != nil {
		t.Fatalf("SaveBytes: %v", err)
	}

	restored, err := LoadSessionBytes(blob)
	if err != nil {
		t.Fatalf("LoadSessionBytes: %v", err)
	}

	dog2, err := restored.Declare("Dog")
	if err != nil {
		t.Fatalf("Declare(Dog) after load: %v", err)
	}
	animal2, err := restored.Declare("Animal")
	if err != nil {
		t.Fatalf("Declare(Animal) after load: %v", err)
	}
	if dog2 != dog || animal2 != animal {
		t.Fatalf("interned bps changed across round trip: dog %v->%v, animal %v->%v", dog, dog2, animal, animal2)
	}

	sat, err = restored.IsSubsumedBy(context.Background(), dog2, animal2)
	if err != nil {
		t.Fatalf("IsSubsumedBy after load: %v", err)
	}
	if !sat {
		t.Fatalf("Dog subsumed by Animal after load = false, want true; GCI lost across round trip")
	}
}

func TestPersistRejectsBadMagic(t *testing.T) {
	s, _, _ := buildSampleSession(t)
	blob, err := s.SaveBytes()
	if err != nil {
		t.Fatalf("SaveBytes: %v", err)
	}
	blob[0] = 'X'
	if _, err := LoadSessionBytes(blob); err == nil {
		t.Fatalf("LoadSessionBytes with corrupted magic returned no error")
	}
}

func TestPersistRejectsFutureVersion(t *testing.T) {
	s, _, _ := buildSampleSession(t)
	blob, err := s.SaveBytes()
	if err != nil {
		t.Fatalf("SaveBytes: %v", err)
	}
	// Version is the big-endian uint32 at bytes [4:8].
	blob[7] = byte(persistFormatVersion + 1)
	if _, err := LoadSessionBytes(blob); err == nil {
		t.Fatalf("LoadSessionBytes with mismatched version returned no error")
	}
}

func TestPersistRoundTripWithTaxonomy(t *testing.T) {
	s, dog, animal := buildSampleSession(t)
	tax, err := Classify(context.Background(), s.Oracle(), []BP{dog, animal}, 2)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	s.taxonomy = tax

	blob, err := s.SaveBytes()
	if err != nil {
		t.Fatalf("SaveBytes: %v", err)
	}
	restored, err := LoadSessionBytes(blob)
	if err != nil {
		t.Fatalf("LoadSessionBytes: %v", err)
	}
	if restored.taxonomy == nil {
		t.Fatalf("restored session has no taxonomy")
	}
	node := restored.taxonomy.Node(dog)
	if node == nil {
		t.Fatalf("restored taxonomy has no node for Dog")
	}
	found := false
	for _, p := range node.Parents {
		if p == animal {
			found = true
		}
	}
	if !found {
		t.Fatalf("restored taxonomy: Dog's parents = %v, want to contain Animal (%v)", node.Parents, animal)
	}
}
