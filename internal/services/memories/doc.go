// Package memories owns captured family moments: memory entries, detected
// milestones, and the processing outbox that feeds the background worker.
package memories
