package cli

import (
	"io"

	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	template     string
	instructions string
}

func newAnalyzeCmd(flags *globalFlags, in io.Reader, out io.Writer) *cobra.Command {
	o := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze the log files and generate a report without the menu",
		Long: `Run the analyze and report pipeline once. The prompt template is chosen with
--template (file name or display name) instead of the interactive menu; without it
the default analysis prompt is used. A template that does not exist is an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(flags, in, out)
			if err != nil {
				return err
			}
			defer env.Close()

			selector := env.app.Prompts().Fixed(o.template, o.instructions)
			if _, err := env.app.AnalyzeAndReport(cmd.Context(), selector); err != nil {
				return &silentError{err: err}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&o.template, "template", "t", "", "Prompt template from the prompts folder (e.g. database-issues)")
	cmd.Flags().StringVarP(&o.instructions, "instructions", "i", "", "Additional instructions appended to the prompt")

	return cmd
}
