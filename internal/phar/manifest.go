package phar

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
)

// ErrNoManifest is returned when a phar does not embed manifest.xml.
var ErrNoManifest = errors.New("phar has no manifest")

// Manifest is the subset of a phar.io manifest that describes what the
// phar needs from its environment.
type Manifest struct {
	Name    string
	Version string
	Type    string

	// RuntimeConstraint is the required runtime version; nil when the
	// manifest does not say.
	RuntimeConstraint *version.Constraint

	// Extensions lists required runtime extensions in document order.
	Extensions []string

	// OSFamily is the required operating system family; empty means any.
	OSFamily string
}

type manifestXML struct {
	XMLName  xml.Name `xml:"phar"`
	Contains struct {
		Name    string `xml:"name,attr"`
		Version string `xml:"version,attr"`
		Type    string `xml:"type,attr"`
	} `xml:"contains"`
	Requires struct {
		PHP *struct {
			Version    string `xml:"version,attr"`
			Extensions []struct {
				Name string `xml:"name,attr"`
			} `xml:"ext"`
		} `xml:"php"`
		OS *struct {
			Family string `xml:"family,attr"`
		} `xml:"os"`
	} `xml:"requires"`
}

// ParseManifest decodes a phar.io manifest.xml document.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc manifestXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	m := &Manifest{
		Name:    doc.Contains.Name,
		Version: doc.Contains.Version,
		Type:    doc.Contains.Type,
	}

	if php := doc.Requires.PHP; php != nil {
		if raw := strings.TrimSpace(php.Version); raw != "" {
			c, err := version.ParseConstraint(raw)
			if err != nil {
				return nil, fmt.Errorf("parse manifest: runtime requirement: %w", err)
			}
			m.RuntimeConstraint = &c
		}
		for _, ext := range php.Extensions {
			if name := strings.TrimSpace(ext.Name); name != "" {
				m.Extensions = append(m.Extensions, name)
			}
		}
	}

	if req := doc.Requires.OS; req != nil {
		m.OSFamily = strings.TrimSpace(req.Family)
	}

	return m, nil
}
