package cli

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server"
	"github.com/peer-calls/relay/server/command"
	"github.com/peer-calls/relay/server/logger"
	"github.com/spf13/pflag"
)

type serverHandler struct {
	args struct {
		config string
	}

	log logger.Logger
}

func (h *serverHandler) registerFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&h.args.config, "config", "c", "", "config file to use")
}

func (h *serverHandler) Handle(ctx context.Context, args []string) error {
	log := h.log

	c, err := readConfig(h.args.config)
	if err != nil {
		return errors.Trace(err)
	}

	log.Info(fmt.Sprintf("Using config: %+v", c.Redacted()), nil)

	store, err := server.NewStore(log, c.Store)
	if err != nil {
		return errors.Annotate(err, "new store")
	}

	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Close store", errors.Trace(err), nil)
		}
	}()

	rooms := server.NewRoomTable(log, store.Adapter, store.Rooms)

	relay := server.NewRelayHandler(server.RelayParams{
		Log:   log,
		WSS:   server.NewWSS(log, store.Adapter, c.Relay.WriteQueueSize, c.Relay.MaxMessageSize),
		Rooms: rooms,
		Router: server.NewRouter(server.RouterParams{
			Log:           log,
			Adapter:       store.Adapter,
			Rooms:         rooms,
			StrictRouting: c.Relay.StrictRouting,
		}),
		PingInterval: c.Relay.PingInterval,
		PongTimeout:  c.Relay.PongTimeout,
	})

	mux := server.NewMux(server.MuxParams{
		Log:        log,
		BaseURL:    c.BaseURL,
		ICEServers: c.ICEServers,
		Prometheus: c.Prometheus,
		FS:         c.FS,
		Relay:      relay,
	})

	listener, err := net.Listen("tcp", net.JoinHostPort(
		c.BindHost,
		strconv.Itoa(c.BindPort),
	))
	if err != nil {
		return errors.Annotate(err, "listen")
	}

	defer listener.Close()

	addr, _ := listener.Addr().(*net.TCPAddr)
	log.Info("Listen", logger.Ctx{
		"local_addr": addr,
	})

	srv := server.New(server.Params{
		TLSCertFile: c.TLS.Cert,
		TLSKeyFile:  c.TLS.Key,
	}, mux)

	return errors.Trace(srv.Start(ctx, listener))
}

func readConfig(filename string) (server.Config, error) {
	configFiles := []string{}
	if filename != "" {
		configFiles = append(configFiles, filename)
	}

	c, err := server.ReadConfig(configFiles)

	return c, errors.Annotate(err, "read config")
}

func newServerCmd(props Props) *command.Command {
	h := &serverHandler{
		log: props.Log.WithNamespaceAppended("server"),
	}

	return command.New(command.Params{
		Name:    "server",
		Desc:    "Starts the relay server (default)",
		Flags:   h.registerFlags,
		Handler: h,
	})
}
