package main

import (
	"github.com/spf13/cobra"

	"github.com/Ning0612/sympack/internal/fsys"
	"github.com/Ning0612/sympack/internal/progress"
	"github.com/Ning0612/sympack/internal/resource"
	"github.com/Ning0612/sympack/internal/service"
)

func newEmbedCmd(a *app) *cobra.Command {
	var (
		output string
		level  int
	)

	cmd := &cobra.Command{
		Use:   "embed <exe> <script>",
		Short: "Append a script to an executable as " + resource.PayloadName,
		Long: `Append an archive holding <script> as ` + resource.PayloadName + ` to <exe>.

An archive already appended to the executable is replaced. With --output
the executable is copied first and <exe> is left untouched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("level") {
				level = a.cfg.Archive.Level
			}
			res, err := a.svc.Embed(cmd.Context(), service.EmbedRequest{
				Exe:    args[0],
				Script: args[1],
				Output: output,
				Level:  level,
			})
			if err != nil {
				return err
			}
			a.printf(cmd.OutOrStdout(), "%s %s: payload %s\n",
				SuccessStyle.Render("✓"), PathStyle.Render(res.Target), progress.FormatBytes(res.Bytes))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a copy of <exe>")
	cmd.Flags().IntVarP(&level, "level", "l", 9, "compression level 0-9")
	return cmd
}

func newStripCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "strip <exe>",
		Short: "Remove the archive appended to an executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.Strip(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printf(cmd.OutOrStdout(), "%s %s: removed %s\n",
				SuccessStyle.Render("✓"), PathStyle.Render(res.Target), progress.FormatBytes(res.Bytes))
			return nil
		},
	}
}

func newPayloadCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "payload <exe>",
		Short: "Print the script embedded in an executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := a.svc.Payload(args[0])
			if err != nil {
				return err
			}
			if output != "" {
				return fsys.WriteFile(output, script)
			}
			_, err = cmd.OutOrStdout().Write(script)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the script to a file")
	return cmd
}
