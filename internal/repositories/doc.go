// Package repositories implements SQLite persistence for the auth event journal.
//
// Key Implementations:
//   - [AuthEventRepository] : append-only journal of authentication outcomes, read back newest first
//   - [Store] : opens the database, runs embedded migrations and wires the repositories
//
// The journal never stores token material; it records what happened, to whom (provider user id) and from where.
package repositories
