// Package types defines the data types shared by the retrieval pipeline.
//
// A retrieval strategy returns ScoredRecords. Each record carries an
// Identity used to merge the same entity across strategies, a score that is
// local to its strategy until normalized, ordered Metadata and an optional
// HitData payload. Rank fusion groups records into CandidateRecords, and the
// assembler turns the surviving candidates into a Context that is handed to
// text generation.
//
// # Hit payloads
//
// HitData is a closed set of payload shapes:
//   - SkillsHit: the matched skills of a person
//   - PositionsHit: a position history
//   - GenericHit: any other field map
//
// DecodeHit infers the shape from the raw value read from the store. The
// DecodeSkills, DecodePositions and DecodeGeneric decoders force one shape.
//
// # Queries
//
// RetrievalQuery records every statement issued against the graph store with
// the parameters bound to it, so callers can replay it. BrowserQueries
// renders it for the Neo4j Browser.
//
// # Validation
//
// ScoredRecord.Validate reports ErrEmptyIdentity or ErrEmptyStrategy.
package types
