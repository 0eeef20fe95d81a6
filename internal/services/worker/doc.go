// Package worker drains the memory processing outbox: it leases due events,
// dispatches them to handlers like milestone detection, and acks, retries,
// or dead-letters each one.
package worker
