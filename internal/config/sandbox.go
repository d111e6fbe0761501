package config

import (
	"context"

	lua "github.com/yuin/gopher-lua"
)

// blockedGlobals are base functions removed from every config VM. They load
// code, reach the filesystem or let a script tamper with metatables.
var blockedGlobals = []string{
	"require",
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"module",
	"getmetatable",
	"setmetatable",
	"rawget",
	"rawset",
	"rawequal",
	"getfenv",
	"setfenv",
	"collectgarbage",
	"newproxy",
}

// newSandboxedVM creates a Lua VM with only the base, table, string and math
// libraries. The VM is bound to ctx so a runaway script is interrupted.
func newSandboxedVM(ctx context.Context) *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: maxCallStackSize,
		RegistrySize:  maxRegistrySize,
	})

	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	if ctx != nil {
		L.SetContext(ctx)
	}
	return L
}
