package platform

import (
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
	lua "github.com/yuin/gopher-lua"
)

func linuxEnv() Environment {
	return Environment{
		Info: Info{
			OS:            "linux",
			OSFamily:      OSFamilyLinux,
			Arch:          "amd64",
			Distro:        "ubuntu",
			DistroFamily:  DistroFamilyDebian,
			DistroVersion: "22.04",
		},
		Runtime: &Runtime{
			Version:    version.MustParse("8.2.7"),
			Extensions: []string{"json", "mbstring"},
		},
	}
}

func TestInjectPlatformTable(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := InjectPlatformTable(L, linuxEnv()); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	tests := []struct {
		name string
		expr string
		want lua.LValue
	}{
		{"os", "platform.os", lua.LString("linux")},
		{"os_family", "platform.os_family", lua.LString("Linux")},
		{"is_linux", "platform.is_linux", lua.LTrue},
		{"is_windows", "platform.is_windows", lua.LFalse},
		{"distro_id", "platform.distro.id", lua.LString("ubuntu")},
		{"distro_family", "platform.distro.family", lua.LString("debian")},
		{"php_version", "platform.php_version", lua.LString("8.2.7")},
		{"php_major", "platform.php_major", lua.LNumber(8)},
		{"has_extension", `platform.has_extension("JSON")`, lua.LTrue},
		{"missing_extension", `platform.has_extension("intl")`, lua.LFalse},
		{"when_true", `platform.when(true, "x")`, lua.LString("x")},
		{"when_false", `platform.when(false, "x")`, lua.LNil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := L.DoString("result = " + tt.expr); err != nil {
				t.Fatalf("evaluate %s: %v", tt.expr, err)
			}
			got := L.GetGlobal("result")
			if got != tt.want {
				t.Errorf("%s = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestInjectPlatformTable_NoRuntime(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	env := linuxEnv()
	env.Runtime = nil
	env.Info.Distro = ""

	if err := InjectPlatformTable(L, env); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	if err := L.DoString(`
		assert(platform.php_version == nil, "php_version should be nil")
		assert(platform.distro == nil, "distro should be nil")
		assert(platform.has_extension("json") == false, "no runtime, no extensions")
	`); err != nil {
		t.Fatal(err)
	}
}

func TestInjectPlatformTable_ReadOnly(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := InjectPlatformTable(L, linuxEnv()); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	for _, code := range []string{`platform.os = "windows"`, `platform.new_field = 1`} {
		err := L.DoString(code)
		if err == nil {
			t.Errorf("%s: expected error", code)
			continue
		}
		if !strings.Contains(err.Error(), "read-only") {
			t.Errorf("%s: error %v should mention read-only", code, err)
		}
	}

	if err := L.DoString(`setmetatable(platform, {})`); err == nil {
		t.Error("changing the protected metatable should fail")
	}
}
