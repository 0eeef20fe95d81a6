// Package web serves the REST JSON API composing the accounts, family,
// and memories services behind cookie-based sessions.
package web
