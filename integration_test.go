package blockit

import (
	"testing"

	"github.com/robolibs/blockit-sub001/consensus"
	"github.com/robolibs/blockit-sub001/identity"
	"github.com/robolibs/blockit-sub001/ledger"
	"github.com/robolibs/blockit-sub001/merkle"
	"github.com/robolibs/blockit-sub001/store"
)

type telemetryPayload string

func (p telemetryPayload) ToString() string { return string(p) }

// S1: a 1000-leaf Merkle tree yields proofs short enough to anchor
// efficiently (<=15 siblings, i.e. O(log2 n)).
func TestScenarioMerkleEfficiencyAtScale(t *testing.T) {
	leaves := make([]string, 1000)
	for i := range leaves {
		leaves[i] = merkle.HashLeaf(string(rune(i)))
	}
	tree := merkle.Build(leaves)
	proof := tree.ProofForIndex(999)
	if len(proof) > 15 {
		t.Fatalf("proof length %d exceeds 15 for 1000 leaves", len(proof))
	}
	if !merkle.VerifyProof(leaves[999], 999, proof, tree.Root()) {
		t.Fatal("expected proof to verify against the tree root")
	}
}

// S2: a chain accepts a well-formed block and rejects any later block
// that tries to replay an already-committed transaction UUID.
func TestScenarioChainAppendAndDoubleSpendRejection(t *testing.T) {
	key, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	chain := ledger.NewChain[telemetryPayload]("genesis")

	tx := ledger.NewTransaction[telemetryPayload]("battery=94", 1)
	signed, err := tx.Sign(key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	block := ledger.NewBlock[telemetryPayload](1, chain.Last().Hash(), []ledger.Transaction[telemetryPayload]{signed}, 0)
	if err := chain.AddBlock(block); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	replay := ledger.NewBlock[telemetryPayload](2, chain.Last().Hash(), []ledger.Transaction[telemetryPayload]{signed}, 0)
	if err := chain.AddBlock(replay); err == nil {
		t.Fatal("expected replayed transaction UUID to be rejected")
	}
	if chain.Height() != 2 {
		t.Fatalf("expected chain height to stay at 2 after rejection, got %d", chain.Height())
	}
}

// S3: two validators, alice and bob, form quorum together once both
// sign a proposal.
func TestScenarioPoAQuorumFormationAliceAndBob(t *testing.T) {
	cfg := consensus.DefaultPoAConfig()
	cfg.InitialRequiredSignatures = 2
	cfg.MinimumRequiredSignatures = 1
	poa := consensus.NewPoAConsensus(cfg, nil)

	alice, _ := identity.Generate()
	bob, _ := identity.Generate()
	if err := poa.AddValidator("alice", alice, 10); err != nil {
		t.Fatalf("AddValidator alice: %v", err)
	}
	if err := poa.AddValidator("bob", bob, 10); err != nil {
		t.Fatalf("AddValidator bob: %v", err)
	}

	propID := poa.CreateProposal("blockhash123", "alice")
	if _, err := poa.AddSignature(propID, alice.ID(), []byte("sig-alice")); err != nil {
		t.Fatalf("AddSignature alice: %v", err)
	}
	reached, err := poa.AddSignature(propID, bob.ID(), []byte("sig-bob"))
	if err != nil {
		t.Fatalf("AddSignature bob: %v", err)
	}
	if !reached {
		t.Fatal("expected quorum to form once both alice and bob signed")
	}
}

// S4: as validators go offline, the dynamic quorum adapts downward
// instead of stalling consensus.
func TestScenarioOfflineAdaptation(t *testing.T) {
	cfg := consensus.DefaultPoAConfig()
	cfg.InitialRequiredSignatures = 3
	cfg.MinimumRequiredSignatures = 1
	poa := consensus.NewPoAConsensus(cfg, nil)

	var ids []string
	for i := 0; i < 3; i++ {
		k, _ := identity.Generate()
		poa.AddValidator("robot", k, 1)
		ids = append(ids, k.ID())
	}
	if poa.RequiredSignatures() != 3 {
		t.Fatalf("expected required=3 with all online, got %d", poa.RequiredSignatures())
	}
	poa.MarkOffline(ids[0])
	poa.MarkOffline(ids[1])
	if poa.RequiredSignatures() != 1 {
		t.Fatalf("expected required to drop to minimum(1) with only one online, got %d", poa.RequiredSignatures())
	}
}

// S5: a validator proposing faster than the configured hourly cap is
// rate-limited.
func TestScenarioRateLimitThreeProposalsMaxTwo(t *testing.T) {
	cfg := consensus.DefaultPoAConfig()
	cfg.MaxProposalsPerHour = 2
	cfg.MinSecondsBetweenProposals = 0
	poa := consensus.NewPoAConsensus(cfg, nil)

	key, _ := identity.Generate()
	poa.AddValidator("alice", key, 1)

	poa.RecordProposal(key.ID())
	poa.RecordProposal(key.ID())
	poa.RecordProposal(key.ID())

	if err := poa.CanPropose(key.ID()); err == nil {
		t.Fatal("expected the 3rd proposal within the window to be rate-limited")
	}
}

// S6: validator records survive a commit/reopen cycle, and their
// weights remain summable.
func TestScenarioPersistenceRoundTripWeightSum(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.InitializeCoreSchema(); err != nil {
		t.Fatalf("InitializeCoreSchema: %v", err)
	}

	alice, _ := identity.Generate()
	bob, _ := identity.Generate()
	s.StoreValidator(store.ValidatorRecord{ValidatorID: alice.ID(), ParticipantID: "alice", Weight: 10})
	s.StoreValidator(store.ValidatorRecord{ValidatorID: bob.ID(), ParticipantID: "bob", Weight: 20})
	tx := s.BeginTransaction()
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := store.Open(dir, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	all, err := reopened.LoadAllValidators()
	if err != nil {
		t.Fatalf("LoadAllValidators: %v", err)
	}
	var total uint32
	for _, r := range all {
		total += r.Weight
	}
	if total != 30 {
		t.Fatalf("got total weight %d, want 30", total)
	}
}
