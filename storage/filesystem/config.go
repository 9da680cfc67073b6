package filesystem

import (
	stdconfig "github.com/awesome-os/universal-git-sub008/config"
	formatcfg "github.com/awesome-os/universal-git-sub008/plumbing/format/config"
	"github.com/awesome-os/universal-git-sub008/storage/filesystem/dotgit"
	"github.com/awesome-os/universal-git-sub008/utils/ioutil"
)

// ConfigStorage is an implementation of config.ConfigStorer backed by the
// .git/config file.
type ConfigStorage struct {
	dir          *dotgit.DotGit
	objectFormat formatcfg.ObjectFormat
}

// Config reads and parses .git/config, returning an empty Config if the
// file does not yet exist.
func (c *ConfigStorage) Config() (conf *stdconfig.Config, err error) {
	f, err := c.dir.Config()
	if err != nil {
		if err == dotgit.ErrConfigNotFound {
			return stdconfig.NewConfig(), nil
		}
		return nil, err
	}

	defer ioutil.CheckClose(f, &err)

	return stdconfig.ReadConfig(f)
}

// SetConfig overwrites .git/config with cfg.
func (c *ConfigStorage) SetConfig(cfg *stdconfig.Config) (err error) {
	if err := cfg.Validate(); err != nil {
		return err
	}

	f, err := c.dir.ConfigWriter()
	if err != nil {
		return err
	}

	defer ioutil.CheckClose(f, &err)

	b, err := cfg.Marshal()
	if err != nil {
		return err
	}

	_, err = f.Write(b)
	return err
}
