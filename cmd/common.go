package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/crossgaze/crossgaze/pkg/config"
	"github.com/crossgaze/crossgaze/pkg/logger"
	"github.com/crossgaze/crossgaze/pkg/runtime"
)

var (
	// Global flags
	FlagLogLevel     = 0
	FlagConfigFile   = "config.yaml"
	FlagConfigFolder = config.GetDefaultConfigDirectory("crossgaze", "config.yaml")
	FlagLogFile      = "activity.log"

	initialized bool
)

// initCore initializes logging and configuration for a command run.
func initCore(showAppInfo bool) error {
	if initialized {
		return nil
	}

	if err := logger.Init(FlagLogLevel, filepath.Join(FlagConfigFolder, FlagLogFile)); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if showAppInfo {
		log := logger.GetLogger("app")
		log.Infof("crossgaze %s (commit: %s, built: %s)", runtime.Version, runtime.GitCommit, runtime.Timestamp)
	}

	if err := config.Init(filepath.Join(FlagConfigFolder, FlagConfigFile)); err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	initialized = true
	return nil
}
