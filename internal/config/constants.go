package config

import "time"

// FileName is the declared configuration file in a project directory.
const FileName = "pharm.lua"

// Lua schema field names and globals
const (
	luaGlobalPharm     = "pharm"
	luaFieldPhars      = "phars"
	luaFieldName       = "name"
	luaFieldVersion    = "version"
	luaFieldConstraint = "constraint"
	luaFieldLocation   = "location"
	luaFieldCopy       = "copy"
)

// Parsing limits.
const (
	MaxConfigSize = 1 << 20
	MaxPharCount  = 500
	ParseTimeout  = 5 * time.Second

	maxCallStackSize = 256
	maxRegistrySize  = 1024 * 20
)
