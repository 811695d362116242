package config

import (
	"github.com/tauraamui/dragonrelay/internal/config"
	"github.com/tauraamui/dragonrelay/pkg/configdef"
)

type CreateResolver interface {
	configdef.CreateResolver
}

func DefaultCreateResolver() CreateResolver {
	return config.DefaultCreateResolver()
}
