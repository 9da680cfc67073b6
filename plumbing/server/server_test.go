package server_test

import (
	"github.com/awesome-os/universal-git-sub008/internal/transport/test"
	"github.com/awesome-os/universal-git-sub008/plumbing/cache"
	"github.com/awesome-os/universal-git-sub008/plumbing/server"
	"github.com/awesome-os/universal-git-sub008/plumbing/transport"
	"github.com/awesome-os/universal-git-sub008/plumbing/transport/file"
	"github.com/awesome-os/universal-git-sub008/storage/filesystem"
	"github.com/awesome-os/universal-git-sub008/storage/memory"

	fixtures "github.com/go-git/go-git-fixtures/v4"
)

type BaseSuite struct {
	test.ReceivePackSuite

	loader       server.MapLoader
	client       transport.Transport
	clientBackup transport.Transport
	asClient     bool
}

func (s *BaseSuite) SetupSuite() {
	s.loader = server.MapLoader{}
	if s.asClient {
		s.client = server.NewClient(s.loader)
	} else {
		s.client = server.NewServer(s.loader)
	}

	s.clientBackup = file.DefaultClient
	transport.Register("file", s.client)
}

func (s *BaseSuite) TearDownSuite() {
	if s.clientBackup == nil {
		transport.Unregister("file")
	} else {
		transport.Register("file", s.clientBackup)
	}
	fixtures.Clean()
}

func (s *BaseSuite) prepareRepositories() {
	var err error

	fs := fixtures.Basic().One().DotGit()
	s.Endpoint, err = transport.NewEndpoint(fs.Root())
	s.Nil(err)
	s.loader[s.Endpoint.String()] = filesystem.NewStorage(fs, cache.NewObjectLRUDefault())

	s.EmptyEndpoint, err = transport.NewEndpoint("/empty.git")
	s.Nil(err)
	s.loader[s.EmptyEndpoint.String()] = memory.NewStorage()

	s.NonExistentEndpoint, err = transport.NewEndpoint("/non-existent.git")
	s.Nil(err)
}
