// Package hash provides helpers for hashing and verifying secrets.
//
// Two kinds of secrets flow through this service: one-time passcodes, which
// are hashed with keyed HMAC-SHA256 so the stored digest is deterministic and
// comparable, and account passwords, which use a slow adaptive hash (bcrypt or
// argon2id). Only digests are ever persisted.
package hash
