package cli

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/client"
	"github.com/peer-calls/relay/server"
	"github.com/peer-calls/relay/server/command"
	"github.com/peer-calls/relay/server/identifiers"
	"github.com/peer-calls/relay/server/logger"
	"github.com/peer-calls/relay/server/uuid"
	"github.com/spf13/pflag"
)

type joinHandler struct {
	args struct {
		config  string
		url     string
		room    string
		noAudio bool
		noVideo bool
	}

	log logger.Logger
}

func (h *joinHandler) registerFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&h.args.config, "config", "c", "", "config file with the ICE servers to use")
	flags.StringVarP(&h.args.url, "url", "u", "ws://localhost:3001/ws", "relay websocket url")
	flags.StringVarP(&h.args.room, "room", "r", "", "room to join")
	flags.BoolVar(&h.args.noAudio, "no-audio", false, "join with audio disabled")
	flags.BoolVar(&h.args.noVideo, "no-video", false, "join with the video track disabled (the synthetic video track carries no packets)")
}

func (h *joinHandler) Handle(ctx context.Context, args []string) error {
	log := h.log

	c, err := readConfig(h.args.config)
	if err != nil {
		return errors.Trace(err)
	}

	factory, err := client.NewPionFactory(log, server.ICEAuthServers(c.ICEServers, time.Now()))
	if err != nil {
		return errors.Trace(err)
	}

	capturer := client.NewSyntheticCapturer(log, uuid.New())
	defer capturer.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	media := client.NewLocalMedia(capturer)

	conn, err := client.Dial(ctx, client.DialParams{
		Log:     log,
		URL:     h.args.url,
		Media:   media,
		Factory: factory,
		OnPeerLeft: func(clientID identifiers.ClientID) {
			log.Info("Peer left", logger.Ctx{
				"remote_id": clientID,
			})
		},
	})
	if err != nil {
		return errors.Trace(err)
	}

	defer conn.Close()

	errCh := make(chan error, 1)

	go func() {
		errCh <- conn.Run(ctx)
	}()

	if err := conn.Join(ctx, h.args.room); err != nil {
		cancel()
		<-errCh

		return errors.Annotate(err, "join")
	}

	if h.args.noAudio {
		media.ToggleAudio()
	}

	if h.args.noVideo {
		media.ToggleVideo()
	}

	select {
	case err := <-errCh:
		if ctx.Err() == nil {
			return errors.Trace(err)
		}
	case <-ctx.Done():
		<-errCh
	}

	return nil
}

func newJoinCmd(props Props) *command.Command {
	h := &joinHandler{
		log: props.Log.WithNamespaceAppended("join"),
	}

	return command.New(command.Params{
		Name:    "join",
		Desc:    "Joins a room as a headless peer until interrupted",
		Flags:   h.registerFlags,
		Handler: h,
	})
}
