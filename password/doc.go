// Package password hashes and verifies account secrets and scores their
// strength.
//
// # Output format
//
// New hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.Verify] also accepts bcrypt digests ($2a$, $2b$, $2y$) carried over
// from older deployments. An empty or unparseable digest returns
// [ErrMalformedHash]; callers treat that as an integrity failure, not a wrong
// password.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other novelAuth package.
//   - Log plaintext secrets or digests.
package password
