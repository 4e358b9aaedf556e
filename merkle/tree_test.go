package merkle

import "testing"

func TestEmptyTree(t *testing.T) {
	tree := Build(nil)
	if !tree.IsEmpty() {
		t.Fatal("expected empty tree")
	}
	if tree.Root() != "" {
		t.Errorf("expected empty root, got %q", tree.Root())
	}
	if proof := tree.ProofForIndex(0); proof != nil {
		t.Fatalf("expected empty proof on empty tree, got %d elements", len(proof))
	}
}

func TestSingleLeaf(t *testing.T) {
	tree := Build([]string{"only"})
	if tree.Root() != HashLeaf("only") {
		t.Errorf("single-leaf root should equal the leaf's own hash")
	}
	proof := tree.ProofForIndex(0)
	if len(proof) != 0 {
		t.Errorf("expected empty proof for single leaf, got %d elements", len(proof))
	}
	if !VerifyProof("only", 0, proof, tree.Root()) {
		t.Fatal("expected single-leaf proof to verify")
	}
}

func TestCombineHexUsesHexTextNotRawBytes(t *testing.T) {
	left := HashLeaf("a")
	right := HashLeaf("b")
	combined := CombineHex(left, right)
	if combined != HashLeaf(left+right) {
		t.Fatal("CombineHex must hash the concatenated hex text of its children")
	}
}

func TestOddLeafCountDuplicatesLast(t *testing.T) {
	leaves := []string{"a", "b", "c"}
	tree := Build(leaves)
	h := []string{HashLeaf("a"), HashLeaf("b"), HashLeaf("c")}
	left := CombineHex(h[0], h[1])
	right := CombineHex(h[2], h[2])
	want := CombineHex(left, right)
	if tree.Root() != want {
		t.Errorf("got root %q, want %q", tree.Root(), want)
	}
}

func TestProofRoundTripAllIndices(t *testing.T) {
	leaves := []string{"a", "b", "c", "d", "e"}
	tree := Build(leaves)
	for i, leaf := range leaves {
		proof := tree.ProofForIndex(i)
		if !VerifyProof(leaf, i, proof, tree.Root()) {
			t.Errorf("proof for index %d failed to verify", i)
		}
	}
}

func TestProofForIndexOutOfRangeReturnsEmpty(t *testing.T) {
	tree := Build([]string{"a", "b", "c"})
	if proof := tree.ProofForIndex(-1); proof != nil {
		t.Errorf("expected empty proof for negative index, got %d elements", len(proof))
	}
	if proof := tree.ProofForIndex(3); proof != nil {
		t.Errorf("expected empty proof for out-of-range index, got %d elements", len(proof))
	}
}

func TestProofForLeafLinearSearch(t *testing.T) {
	leaves := []string{"x", "y", "z"}
	tree := Build(leaves)
	proof := tree.ProofForLeaf("y")
	if !VerifyProof("y", 1, proof, tree.Root()) {
		t.Fatal("expected proof for leaf 'y' to verify at index 1")
	}
	if proof := tree.ProofForLeaf("missing"); proof != nil {
		t.Fatalf("expected empty proof for unknown leaf, got %d elements", len(proof))
	}
}

func TestVerifyProofAgainstRootFallback(t *testing.T) {
	tree := Build([]string{"solo"})
	proof := tree.ProofForLeaf("solo")
	if !VerifyProofAgainstRoot("solo", proof, tree.Root()) {
		t.Fatal("expected fallback verification to succeed")
	}
}

func TestWrongProofFailsVerification(t *testing.T) {
	leaves := []string{"a", "b", "c", "d"}
	tree := Build(leaves)
	proof := tree.ProofForIndex(0)
	if VerifyProof("tampered", 0, proof, tree.Root()) {
		t.Fatal("expected verification to fail for tampered leaf")
	}
}

func TestLargeTreeProofLength(t *testing.T) {
	leaves := make([]string, 1000)
	for i := range leaves {
		leaves[i] = HashLeaf(string(rune(i)))
	}
	tree := Build(leaves)
	proof := tree.ProofForIndex(500)
	if len(proof) > 15 {
		t.Errorf("expected proof length <= 15 for 1000 leaves, got %d", len(proof))
	}
	if !VerifyProof(leaves[500], 500, proof, tree.Root()) {
		t.Fatal("expected proof to verify")
	}
}
