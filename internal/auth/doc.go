// Package auth guards the local control API.
//
// A single household passphrase, stored as an Argon2id PHC hash in the
// configuration, is exchanged for a short-lived HS256 JWT:
//
//	POST /auth/token {passphrase} ──► VerifyPassphrase ──► IssueToken
//	Authorization: Bearer <jwt>   ──► ParseToken ──► Claims{sub, scope}
//
// Tokens carry a Scope. ScopeRead allows queries; ScopeControl also allows
// toggling collections and starting previews.
package auth
