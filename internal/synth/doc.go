// Package synth turns natural-language questions into graph queries and runs
// them, repairing failed candidates from their own error messages.
//
// An Engine pairs an llm.Oracle with a CandidateExecutor. Each question goes
// through a bounded repair loop:
//
//	generating -> validating -> executing -> succeeded
//	                  |             |
//	                  +--> repairing <--+ (until MaxAttempts generations)
//
// Two executors exist. CypherExecutor runs Cypher in read transactions on a
// graph.GraphClient. ScriptExecutor runs Starlark scripts against a frozen
// graph.Snapshot, exposing the graph as G and algorithms under nx; a script
// answers by assigning FINAL_RESULT.
//
// A response that does not contain exactly one fenced code block is a
// malformed generation and ends the run without repair.
package synth
