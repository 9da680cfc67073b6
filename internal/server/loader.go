package server

import (
	"fmt"
	"testing"

	fixtures "github.com/go-git/go-git-fixtures/v4"

	"github.com/awesome-os/universal-git-sub008/plumbing/transport"
	"github.com/awesome-os/universal-git-sub008/storage"
	"github.com/awesome-os/universal-git-sub008/storage/filesystem"
)

type fixturesLoader struct {
	fix *fixtures.Fixture
	t   *testing.T
}

var _ transport.Loader = &fixturesLoader{}

func (f *fixturesLoader) Load(ep *transport.Endpoint) (storage.Storer, error) {
	if f.fix == nil {
		return nil, fmt.Errorf("cannot load endpoint: fixture not set")
	}

	dot := f.fix.DotGit(fixtures.WithTargetDir(f.t.TempDir))
	st := filesystem.NewStorage(dot, nil)
	return st, nil
}

// Loader returns a transport.Loader that loads the given fixture.
func Loader(t *testing.T, fix *fixtures.Fixture) transport.Loader {
	return &fixturesLoader{t: t, fix: fix}
}
