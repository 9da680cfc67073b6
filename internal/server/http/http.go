package http

import (
	"errors"
	"fmt"
	"net"
	gohttp "net/http"
	"time"

	"github.com/awesome-os/universal-git-sub008/backend/http"
	"github.com/awesome-os/universal-git-sub008/plumbing/transport"
	"github.com/inconshreveable/log15"
)

const (
	addr = "127.0.0.1:0"
)

type server struct {
	l   transport.Loader
	log log15.Logger

	ln  net.Listener
	srv *gohttp.Server
}

func FromLoader(l transport.Loader) (*server, error) {
	s := &server{
		l:   l,
		log: log15.New("component", "http-test-server"),
	}
	return s, nil
}

func (s *server) Start() (string, error) {
	h := http.NewBackend(s.l)

	var err error
	s.ln, err = net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("cannot listen to TCP: %w", err)
	}

	s.srv = &gohttp.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, gohttp.ErrServerClosed) {
			s.log.Error("serve", "err", err)
		}
	}()

	s.log.Info("listening", "addr", s.ln.Addr().String())
	return s.Endpoint()
}

func (s *server) Endpoint() (string, error) {
	if s.ln != nil && s.srv != nil {
		return "http://" + s.ln.Addr().String(), nil
	}

	return "", errors.New("failed to get endpoint: server not started")
}

func (s *server) Close() error {
	err1 := s.ln.Close()
	err2 := s.srv.Close()

	if err := errors.Join(err1, err2); err != nil {
		s.log.Error("close", "err", err)
		return err
	}

	s.log.Info("closed")
	return nil
}
