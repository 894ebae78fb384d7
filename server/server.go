package server

import (
	"context"
	"net"
	"net/http"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/multierr"
)

type Params struct {
	TLSCertFile string
	TLSKeyFile  string
}

type Server struct {
	server *http.Server
	params Params
}

func New(params Params, handler http.Handler) *Server {
	return &Server{
		server: &http.Server{
			Handler: handler,
		},
		params: params,
	}
}

func (s *Server) serve(l net.Listener) error {
	if s.params.TLSCertFile != "" {
		return errors.Trace(s.server.ServeTLS(l, s.params.TLSCertFile, s.params.TLSKeyFile))
	}

	return errors.Trace(s.server.Serve(l))
}

// Start serves on l until ctx is done. It returns nil after a shutdown
// caused by ctx.
func (s *Server) Start(ctx context.Context, l net.Listener) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- errors.Annotate(s.serve(l), "start server")
	}()

	select {
	case err := <-errCh:
		return errors.Trace(err)
	case <-ctx.Done():
	}

	err := errors.Trace(s.server.Close())

	if serveErr := <-errCh; !multierr.Is(serveErr, http.ErrServerClosed) {
		err = serveErr
	}

	return err
}
