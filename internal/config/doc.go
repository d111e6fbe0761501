// Package config reads and writes pharm.lua, the declared list of phars a
// project depends on.
//
// # Format
//
// pharm.lua is a Lua file that assigns a global "pharm" table:
//
//	pharm = {
//	  phars = {
//	    { name = "phpunit", version = "9.6.13", constraint = "^9.6",
//	      location = "./tools/phpunit", copy = false },
//	    platform.when(platform.is_linux,
//	      { name = "phpab", version = "1.29.0", location = "./tools/phpab" }),
//	  },
//	}
//
// Entries that evaluate to nil (for example through platform.when) are
// skipped. The constraint defaults to the caret of the version when omitted.
//
// # Security Model
//
// The file runs in a sandboxed gopher-lua VM. Only the base, table, string
// and math libraries are opened, and the base functions that load code or
// touch the VM internals are removed. The read-only "platform" table
// describes the host and PHP runtime. Parsing is bounded by MaxConfigSize,
// the call stack limit and ParseTimeout.
//
// # Writing
//
// Store applies the install orchestrator's changes and regenerates the file
// with Generator. Regeneration replaces hand-written conditionals with the
// resolved entries.
package config
