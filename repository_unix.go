//go:build !plan9 && unix && !windows
// +build !plan9,unix,!windows

package git

import "github.com/awesome-os/universal-git-sub008/config"

func initConfig(cfg *config.Config) {
	cfg.Core.FileMode = "true"
}
