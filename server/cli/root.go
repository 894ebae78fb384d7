package cli

import (
	"github.com/peer-calls/relay/server/command"
)

func NewRootCommand(props Props) *command.Command {
	return command.New(command.Params{
		Name:    "peer-calls-relay",
		Desc:    "Signaling relay for peer-to-peer WebRTC calls.",
		Default: "server",
		SubCommands: []*command.Command{
			newServerCmd(props),
			newJoinCmd(props),
			newVersionCmd(props),
		},
	})
}
