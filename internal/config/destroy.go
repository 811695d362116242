package config

import (
	"errors"
	"os"

	"github.com/tauraamui/dragonrelay/pkg/log"
	"github.com/tauraamui/xerror"
)

func destroy() error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	if err := fs.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("Config file %s does not exist, nothing to remove", path)
			return nil
		}
		return xerror.Errorf("unable to remove config file: %s: %w", path, err)
	}
	return nil
}
