package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
)

var errConnectionTest = errors.New("connection test failed")

func newTestConnectionCmd(flags *globalFlags, in io.Reader, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Check that the configured LLM server responds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(flags, in, out)
			if err != nil {
				return err
			}
			defer env.Close()

			if !env.app.TestConnection(cmd.Context()) {
				return &silentError{err: errConnectionTest}
			}
			return nil
		},
	}
}
