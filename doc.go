// Package contenthub provides a content monetization ledger for Go applications.
//
// ContentHub registers digital content, gates viewing behind paid
// time-boxed sessions, and sells permanent ownership through minted
// ownership records. Every payment is split between the platform and the
// content creator. It provides:
//
//   - A content registry with per-item view and ownership prices
//   - Payment splitting with an exact floor(amount * fee / 100) platform fee
//   - Single-viewer access sessions (24 hours by default)
//   - Ownership records whose metadata is content-addressed as an IPFS CID
//   - All-or-nothing settlement through a pluggable Custodian
//   - Memory, SQLite and LevelDB stores with atomic batches
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/contenthub"
//	    "github.com/xraph/contenthub/store/sqlite"
//	)
//
//	s, err := sqlite.Open("contenthub.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l := contenthub.New(s)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Callers
//
// Every mutating entry point acts on behalf of the address attached to the
// context with caller.WithAddress. Transports attest that address first,
// for example by recovering the signer of a wallet signature with
// caller.EthAttestor:
//
//	ctx = caller.WithAddress(ctx, "0xcreator")
//	_, err = l.InitializePlatform(ctx, platform.Config{FeePercent: 5})
//	_, err = l.UploadContent(ctx, content.Upload{
//	    ContentID:      "intro-video",
//	    PayloadRef:     "ipfs://bafy...",
//	    ContentType:    content.TypeVideo,
//	    ViewPrice:      10,
//	    OwnershipPrice: 100,
//	})
//
//	viewer := caller.WithAddress(ctx, "0xviewer")
//	purchase, err := l.PayToView(viewer, "intro-video", 10)
//	ok, err := l.VerifyViewAccess(ctx, "intro-video", "0xviewer")
//
// # Sessions
//
// A content item holds a single view session. Granting a new one, by
// payment or by the owner, replaces the previous viewer's remaining time.
//
// # Amounts
//
// Amounts are integers in the smallest unit of the platform asset
// (microAlgos by default). The fee is rounded down, so the creator
// receives any remainder.
//
// # TypeID
//
// Records the ledger creates use TypeIDs:
//
//	pay_01h2xcejqtf2nbrexx3vqjhp41   // Payment receipt
//	sess_01h2xcejqtf2nbrexx3vqjhp41  // View session
//	own_01h455vb4pex5vsknk084sn02q   // Ownership record
//
// # Integration
//
// Package api serves the ledger over HTTP with wallet signature checks,
// package indexer projects committed events into PostgreSQL, SQLite or
// MongoDB through Grove, and package extension wires everything into a
// Forge application. The contenthub command runs a standalone daemon
// configured from a TOML file.
package contenthub
