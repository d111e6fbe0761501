package config

import (
	"bytes"
	"strings"
)

// Generator renders a Config back into pharm.lua.
type Generator struct {
	indent string
}

// NewGenerator creates a new Lua config generator.
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ",
	}
}

// Generate renders cfg. The output is deterministic so regenerating an
// unchanged config yields identical bytes.
func (g *Generator) Generate(cfg *Config) (string, error) {
	var buf bytes.Buffer

	buf.WriteString("-- pharm configuration\n")
	buf.WriteString("-- Managed by pharm. Entries are rewritten on install and remove.\n\n")

	buf.WriteString(luaGlobalPharm + " = {\n")
	g.writePhars(&buf, cfg.Phars)
	buf.WriteString("}\n")

	return buf.String(), nil
}

func (g *Generator) writePhars(buf *bytes.Buffer, phars []InstalledPhar) {
	if len(phars) == 0 {
		buf.WriteString(g.indent + luaFieldPhars + " = {},\n")
		return
	}

	buf.WriteString(g.indent + luaFieldPhars + " = {\n")
	inner := g.indent + g.indent + g.indent
	for _, p := range phars {
		buf.WriteString(g.indent + g.indent + "{\n")
		g.writeField(buf, inner, luaFieldName, g.quoteLuaString(p.Name))
		g.writeField(buf, inner, luaFieldVersion, g.quoteLuaString(p.Version.String()))
		g.writeField(buf, inner, luaFieldConstraint, g.quoteLuaString(p.Constraint.String()))
		g.writeField(buf, inner, luaFieldLocation, g.quoteLuaString(p.Location))
		if p.Copy {
			g.writeField(buf, inner, luaFieldCopy, "true")
		}
		buf.WriteString(g.indent + g.indent + "},\n")
	}
	buf.WriteString(g.indent + "},\n")
}

func (g *Generator) writeField(buf *bytes.Buffer, indent, name, value string) {
	buf.WriteString(indent)
	buf.WriteString(name)
	buf.WriteString(" = ")
	buf.WriteString(value)
	buf.WriteString(",\n")
}

// quoteLuaString quotes a string for Lua, handling special characters.
func (g *Generator) quoteLuaString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\") // Escape backslashes first
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	// Three digits, so a digit after the NUL is not read as part of it.
	s = strings.ReplaceAll(s, "\x00", "\\000")
	return "\"" + s + "\""
}
