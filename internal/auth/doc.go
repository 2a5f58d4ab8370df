// Package auth provides account registration, credential verification,
// and bearer-token session tracking.
//
// Passwords are stored as bcrypt hashes. Sessions are held in memory and
// expire after a configurable TTL; a restart invalidates all tokens.
package auth
