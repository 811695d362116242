package config

import (
	"github.com/tauraamui/dragonrelay/internal/config"
	"github.com/tauraamui/dragonrelay/pkg/configdef"
)

type Resolver interface {
	configdef.Resolver
}

func DefaultResolver() Resolver {
	return config.DefaultResolver()
}
