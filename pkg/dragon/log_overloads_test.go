package dragon_test

import "github.com/tauraamui/dragonrelay/pkg/log"

func overloadErrorLog(overload func(string, ...interface{})) func() {
	logErrorRef := log.Error
	log.Error = overload
	return func() { log.Error = logErrorRef }
}
