// Package persistence provides the durable key-value storage the tracker reads from and writes to.
// It defines the KV interface with SQLite (WAL mode), file and in-memory implementations,
// and the codec for the persisted job list, a JSON array of {"title","company","status"} objects.
package persistence
