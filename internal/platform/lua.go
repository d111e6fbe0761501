package platform

import (
	lua "github.com/yuin/gopher-lua"
)

// InjectPlatformTable creates a read-only "platform" table describing env and
// sets it as a global in L. Call it before loading any user configuration.
func InjectPlatformTable(L *lua.LState, env Environment) error {
	platformTable := L.NewTable()

	L.SetField(platformTable, "os", lua.LString(env.Info.OS))
	L.SetField(platformTable, "os_family", lua.LString(env.Info.OSFamily))
	L.SetField(platformTable, "arch", lua.LString(env.Info.Arch))

	L.SetField(platformTable, "is_linux", lua.LBool(env.IsOSFamily(OSFamilyLinux)))
	L.SetField(platformTable, "is_macos", lua.LBool(env.IsOSFamily(OSFamilyDarwin)))
	L.SetField(platformTable, "is_windows", lua.LBool(env.IsOSFamily(OSFamilyWindows)))

	if env.Info.Distro != "" {
		distroTable := L.NewTable()
		L.SetField(distroTable, "id", lua.LString(env.Info.Distro))
		L.SetField(distroTable, "family", lua.LString(env.Info.DistroFamily))
		L.SetField(distroTable, "version", lua.LString(env.Info.DistroVersion))
		L.SetField(platformTable, "distro", distroTable)
	} else {
		L.SetField(platformTable, "distro", lua.LNil)
	}

	if env.Runtime != nil {
		L.SetField(platformTable, "php_version", lua.LString(env.Runtime.Version.String()))
		L.SetField(platformTable, "php_major", lua.LNumber(env.Runtime.Version.Major))
	} else {
		L.SetField(platformTable, "php_version", lua.LNil)
		L.SetField(platformTable, "php_major", lua.LNil)
	}

	// has_extension(name) -> bool
	L.SetField(platformTable, "has_extension", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(env.Runtime.HasExtension(L.CheckString(1))))
		return 1
	}))

	// when(condition, value) -> value or nil
	L.SetField(platformTable, "when", L.NewFunction(func(L *lua.LState) int {
		if L.CheckBool(1) {
			L.Push(L.Get(2))
		} else {
			L.Push(lua.LNil)
		}
		return 1
	}))

	L.SetGlobal("platform", makeReadOnly(L, platformTable))

	return nil
}

// makeReadOnly returns an empty proxy whose metatable redirects reads to table
// and rejects every write.
func makeReadOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()
	L.SetField(mt, "__index", table)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("platform table is read-only and cannot be modified")
		return 0
	}))
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)

	return proxy
}
