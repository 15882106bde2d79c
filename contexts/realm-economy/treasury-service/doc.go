// Package treasuryservice implements settlement treasuries for the demesne monolith.
//
// The module owns settlement, distribution record, and treasury outbox tables
// and exposes HTTP command/query handlers plus worker entrypoints for the
// distribution scheduler and outbox relay. Payouts are merit-weighted over the
// eligible subject roster, gated by a per-settlement cooldown, and applied as
// a single atomic repository operation.
package treasuryservice
