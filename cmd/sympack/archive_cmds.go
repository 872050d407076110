package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/sympack/internal/archive"
	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/progress"
)

func newCompressCmd(a *app) *cobra.Command {
	var (
		level    int
		password string
		root     string
		mode     string
		comment  string
	)

	cmd := &cobra.Command{
		Use:   "compress <dir> <output>",
		Short: "Compress a directory into a ZIP archive",
		Long: `Compress every regular file under <dir> into <output>.

Entry names are relative to <dir> and use '/' separators; --root prefixes
each name. Mode "w" replaces <output>, "w+" writes a new archive after the
existing bytes of <output>, "a" adds entries to the archive already there.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := a.svc.CompressDefaults(args[0], args[1])

			flags := cmd.Flags()
			if flags.Changed("level") {
				req.Level = level
			}
			if flags.Changed("password") {
				req.Password = password
			}
			if flags.Changed("root") {
				req.Root = root
			}
			if flags.Changed("comment") {
				req.Comment = comment
			}
			if flags.Changed("mode") {
				m, err := archive.ParseWriteMode(mode)
				if err != nil {
					return &ExitError{Code: ExitConfig, Err: err}
				}
				req.Mode = m
			}
			if req.Level < 0 || req.Level > 9 {
				return &ExitError{Code: ExitConfig, Err: fmt.Errorf("%w: %d", archive.ErrInvalidLevel, req.Level)}
			}

			res, err := a.svc.Compress(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.printf(cmd.OutOrStdout(), "%s %s: %d entries, %s in %s\n",
				SuccessStyle.Render("✓"), PathStyle.Render(args[1]),
				res.Entries, progress.FormatBytes(res.Bytes), res.Duration().Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVarP(&level, "level", "l", 9, "compression level 0-9 (0 stores)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "encrypt entries with ZipCrypto")
	cmd.Flags().StringVar(&root, "root", "", "prefix added to every entry name")
	cmd.Flags().StringVarP(&mode, "mode", "m", "w", `write mode: "w", "w+" or "a"`)
	cmd.Flags().StringVar(&comment, "comment", "", "archive comment")
	return cmd
}

func newExtractCmd(a *app) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "extract <archive> [dir]",
		Short: "Extract a ZIP archive",
		Long: `Extract every entry of <archive> into [dir] (default ".").

Entries whose names would escape [dir] are rejected. Works on archives
embedded in executables too.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 2 {
				dir = args[1]
			}
			if !cmd.Flags().Changed("password") {
				password = a.cfg.Archive.Password
			}

			res, err := a.svc.Extract(cmd.Context(), args[0], dir, password)
			if err != nil {
				return err
			}
			a.printf(cmd.OutOrStdout(), "%s %s: %d entries, %s\n",
				SuccessStyle.Render("✓"), PathStyle.Render(dir),
				res.Entries, progress.FormatBytes(res.Bytes))
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "password for encrypted entries")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list <archive>",
		Aliases: []string{"ls"},
		Short:   "List the entries of a ZIP archive",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.svc.List(args[0])
			if err != nil {
				return err
			}

			rows := [][]string{{"NAME", "SIZE", "PACKED", "METHOD", "MODIFIED", "CRC32"}}
			var total uint64
			for _, e := range entries {
				rows = append(rows, entryRow(e))
				total += e.Size
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(rows))
			a.printf(cmd.OutOrStdout(), "%s\n", SubtitleStyle.Render(
				strconv.Itoa(len(entries))+" entries, "+progress.FormatBytes(int64(total))))
			return nil
		},
	}
}

func entryRow(e domain.EntryInfo) []string {
	name := e.Name
	if e.IsEncrypted() {
		name += " *"
	}
	return []string{
		name,
		progress.FormatBytes(int64(e.Size)),
		progress.FormatBytes(int64(e.CompressedSize)),
		e.Method.String(),
		e.ModTime.Format("2006-01-02 15:04"),
		fmt.Sprintf("%08x", e.CRC32),
	}
}
