// Package game runs multi-round games between language-model agents.
//
// An Orchestrator drives one game at a time through Setup, a loop of
// rounds, and Finalize. Each round has four phases:
//
//   - Action: every agent is prompted for a move, which is resolved to a
//     member of the rule set's vocabulary.
//   - Payoff: the joint action is looked up once in the payoff table.
//   - Reflection: every agent is shown the outcome and asked to reflect.
//   - Commit: scores are added, the round is appended to the ledger, and the
//     round counter advances.
//
// Agents are dispatched sequentially by default. Concurrent dispatch runs a
// phase's requests on a bounded worker pool and joins them before any state
// changes, so a round is committed exactly as it would be sequentially.
package game
