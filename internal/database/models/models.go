// Package models defines the row structures for database entities in the
// academy registry: content-addressed records, outbox events, and user
// accounts.
package models

import "time"

// Record is a content-addressed record row. Address is the 32-byte
// deterministic address, Data the record's binary encoding (discriminator
// prefix included), and Bump the stored address-derivation salt.
type Record struct {
	Address   []byte    `db:"address"`
	Kind      string    `db:"kind"`
	Bump      uint8     `db:"bump"`
	Data      []byte    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Event is an append-only outbox row consumed by off-chain indexers.
type Event struct {
	ID        int64     `db:"id" json:"id"`
	Type      string    `db:"event_type" json:"type"`
	Payload   string    `db:"payload" json:"payload"`
	EmittedAt time.Time `db:"emitted_at" json:"emitted_at"`
}

// User represents an account that can sign registry operations. Identity is
// the hex form of the account's 32-byte public identity.
type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Identity     string    `db:"identity"`
	CreatedAt    time.Time `db:"created_at"`
}
