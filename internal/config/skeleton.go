package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrConfigExists is returned by WriteSkeleton when pharm.lua already exists.
var ErrConfigExists = errors.New("config file already exists")

const skeleton = `-- pharm configuration
--
-- Declare the phars this project depends on. pharm install adds entries
-- here; edit them by hand or let pharm manage them.
--
-- The read-only platform table describes the host:
--   platform.os_family, platform.php_version, platform.php_major,
--   platform.has_extension("mbstring"), platform.when(condition, value)

pharm = {
  phars = {
    -- { name = "phpunit", version = "9.6.13", constraint = "^9.6",
    --   location = "./tools/phpunit", copy = false },
  },
}
`

// WriteSkeleton writes a commented pharm.lua into dir and returns its path.
// An existing file is only replaced when force is set.
func WriteSkeleton(dir string, force bool) (string, error) {
	path := filepath.Join(dir, FileName)

	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("%s: %w", path, ErrConfigExists)
		}
	}

	if err := writeFileAtomic(path, []byte(skeleton), 0644); err != nil {
		return path, err
	}
	return path, nil
}
