// Package family owns household state: families and their members, child
// records, and signed invite grants for bringing relatives on board.
package family
