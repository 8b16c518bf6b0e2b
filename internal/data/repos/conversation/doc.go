// Package conversation holds the table repos for sessions, nodes, edges,
// contexts, memberships, QA pairs and messages. Repos never open their own
// transactions; multi-row invariants live in internal/data/aggregates.
package conversation
