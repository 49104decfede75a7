// Package credstore persists per-user credentials on disk.
//
// Each user gets one JSON file named after the user id, holding the bcrypt
// password hash and the Google OAuth token. Writes go through a temp file
// and an atomic rename so a crash mid-write never leaves a torn record.
package credstore
