// Package accounts owns user identity: signup, credentials, web sessions,
// profiles, and username claiming with collision-checked suggestions.
package accounts
