package commands

import "github.com/spf13/cobra"

func GetRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otp",
		Short: "otp is a command line tool for producing and consuming ANSI E1.59 object transforms.",
		Long: `otp is a command line tool for producing and consuming ANSI E1.59
(Entertainment Technology Object Transform Protocol) transform data.

It can produce a point's position over multicast, watch the merged
transforms of remote producers, and list the system numbers currently
being advertised on the network.

Set OTP_NAME to the component name to advertise, and OTP_CID to persist
a component identity across restarts.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		GetProduceCommand(),
		GetWatchCommand(),
		GetSystemsCommand(),
		GetVersionCommand(),
	)

	return cmd
}
