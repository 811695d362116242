package config

import (
	"github.com/tauraamui/dragonrelay/internal/config"
	"github.com/tauraamui/dragonrelay/pkg/configdef"
)

type Creator interface {
	configdef.Creator
}

func DefaultCreator() Creator {
	return config.DefaultCreator()
}
