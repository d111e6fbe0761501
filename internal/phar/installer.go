package phar

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Installer places a stored phar at its destination, as a copy or a
// symlink. An existing destination is replaced atomically.
type Installer struct{}

// NewInstaller creates an Installer.
func NewInstaller() *Installer {
	return &Installer{}
}

// Install links or copies src to dest.
func (i *Installer) Install(src, dest string, makeCopy bool) error {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", src, err)
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return fmt.Errorf("destination %s is a directory", dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}

	tmp := dest + ".pharm-tmp"
	os.Remove(tmp)

	if makeCopy {
		err = copyFile(absSrc, tmp)
	} else {
		err = os.Symlink(absSrc, tmp)
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("install %s: %w", dest, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("install %s: %w", dest, err)
	}
	return nil
}

// Uninstall removes an installed copy or link. A missing destination is
// not an error.
func (i *Installer) Uninstall(dest string) error {
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", dest, err)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dest, 0755)
}
