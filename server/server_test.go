package server_test

import (
	"context"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"testing"

	"github.com/peer-calls/relay/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestServer_Start(t *testing.T) {
	defer goleak.VerifyNone(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := l.Addr().(*net.TCPAddr).Port

	s := server.New(server.Params{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	go func() {
		errCh <- s.Start(ctx, l)
	}()

	c := http.Client{
		Transport: &http.Transport{},
	}
	defer c.CloseIdleConnections()

	res, err := c.Get(fmt.Sprintf("http://127.0.0.1:%d", port))
	require.NoError(t, err)

	body, err := ioutil.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	cancel()
	assert.NoError(t, <-errCh)
}
