package config

import (
	"github.com/tauraamui/dragonrelay/internal/config"
	"github.com/tauraamui/dragonrelay/pkg/configdef"
)

type Destroyer interface {
	configdef.Destroyer
}

func DefaultDestroyer() Destroyer {
	return config.DefaultDestroyer()
}
