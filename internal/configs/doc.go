// Package configs owns Arcanum's declarative configuration: the project
// manifest (arcanum.toml) listing every managed secret and its recipients,
// and the settings describing where project and cache files live.
//
// The manifest is treated as an immutable input by the encryption engine.
// Recipient sets are configuration-owned; the engine never mutates them.
//
// A minimal manifest:
//
//	admin_recipients = ["age1...", "ssh-ed25519 AAAA..."]
//
//	[files.app-env]
//	source = "secrets/app.env.age"
//	dest = ".env"
//	permissions = "0600"
//	recipients = ["age1..."]
package configs
