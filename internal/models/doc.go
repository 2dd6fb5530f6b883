// Package models defines the persistent entities of the proxy.
//
// The proxy stores no tokens and no user profiles. The only persisted entity is the [AuthEvent],
// an append-only journal of authentication outcomes (logins, refreshes, rejections)
// used for operational auditing through the CLI.
//
// Persistent entities implement the [Model] interface. The [Journal] interface defines
// append and read-back operations for append-only tables.
package models
