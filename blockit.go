// Package blockit ties together the identity, merkle, ledger, consensus,
// and store packages into a permissioned ledger for small federated
// fleets. Application code composes those packages directly; this file
// only documents how they fit together.
//
// A typical fleet node:
//
//	key, _ := identity.Generate()
//	chain := ledger.NewChain[MyPayload](genesisPayload)
//	poa := consensus.NewPoAConsensus(consensus.DefaultPoAConfig(), nil)
//	db := store.OpenMem(nil)
package blockit
