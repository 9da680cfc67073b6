//go:build windows
// +build windows

package git

import "github.com/awesome-os/universal-git-sub008/config"

func initConfig(cfg *config.Config) {
	cfg.Core.FileMode = "false"
}
