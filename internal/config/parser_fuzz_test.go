//go:build go1.18

package config

import (
	"context"
	"testing"
	"unicode/utf8"

	lua "github.com/yuin/gopher-lua"
)

func FuzzParser_ParseString(f *testing.F) {
	f.Add(`pharm = { phars = { { name = "phpunit", version = "9.6.13", location = "./phpunit" } } }`)
	f.Add(`pharm = { phars = {} }`)
	f.Add(`pharm = { phars = { { name = "a", version = "1.0.0", location = "a", copy = platform.is_linux } } }`)

	parser := NewParser(nil)

	f.Fuzz(func(t *testing.T, luaCode string) {
		cfg, err := parser.ParseString(context.Background(), luaCode)
		if err == nil {
			if verr := cfg.Validate(); verr != nil {
				t.Errorf("ParseString accepted an invalid config: %v", verr)
			}
		}
	})
}

// The generator's string quoting must evaluate back to the original string.
func FuzzGenerator_QuoteLuaString(f *testing.F) {
	f.Add("phpunit")
	f.Add(`say "hello"`)
	f.Add("line1\r\nline2\ttab")
	f.Add(`C:\Users\test`)
	f.Add("nul\x001")

	gen := NewGenerator()

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			t.Skip()
		}

		L := lua.NewState(lua.Options{SkipOpenLibs: true})
		defer L.Close()

		quoted := gen.quoteLuaString(input)
		if err := L.DoString("s = " + quoted); err != nil {
			t.Fatalf("quoteLuaString(%q) = %s does not evaluate: %v", input, quoted, err)
		}
		if got := L.GetGlobal("s").String(); got != input {
			t.Errorf("round trip of %q gave %q", input, got)
		}
	})
}
