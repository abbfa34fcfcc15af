// Package password hashes and verifies account passwords.
//
// New hashes are Argon2id in PHC string form. Verification also accepts bcrypt
// hashes ($2a$, $2b$, $2y$) so accounts created by the previous deployment keep
// working. Encoded hashes are untrusted input and are bounds-checked before use.
package password
