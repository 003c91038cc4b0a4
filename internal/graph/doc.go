// Package graph is the read side of the property graph store.
//
// GraphClient exposes a single capped, read-only query entry point; the
// Neo4j implementation runs every statement in its own READ access-mode
// session so that one failing candidate query cannot leave state behind for
// the next. MockGraphClient serves canned or computed results for tests.
//
// Two helpers sit on top of GraphClient:
//
//   - Introspect builds a SchemaDescriptor from the database's schema
//     procedures; its String form is what prompts embed.
//   - LoadSnapshot copies nodes and relationships into a frozen, in-memory
//     Snapshot backed by gonum, which script execution uses for algorithms
//     such as shortest paths, PageRank and connected components.
//
// Errors are *types.Error values with GRAPH_* codes. Driver errors are kept
// as the cause, so types.RootCause returns the database's own diagnostic.
package graph
