// Package mcp exposes memory capture and listing tools to AI assistants
// over the Model Context Protocol.
package mcp
