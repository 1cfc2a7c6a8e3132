package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/aziis98/osf-optimize/internal/database"
	"github.com/aziis98/osf-optimize/internal/util"
)

var autoVacuumModes = map[int64]string{0: "none", 1: "full", 2: "incremental"}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database size, tables and index state",
		Long: util.Dedent(`
			Print where the database lives, how large it is, how much space
			VACUUM could reclaim, the row count of every table and whether the
			full-text search table exists.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printStatus(cmd.Context(), a.stdout)
		},
	}
}

type statusStyles struct {
	header lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	good   lipgloss.Style
	bad    lipgloss.Style
	muted  lipgloss.Style
}

func newStatusStyles(w io.Writer) statusStyles {
	r := lipgloss.NewRenderer(w)
	return statusStyles{
		header: r.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
		label:  r.NewStyle().Foreground(lipgloss.Color("12")),
		value:  r.NewStyle(),
		good:   r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		bad:    r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		muted:  r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

const labelWidth = 14

func (s statusStyles) row(w io.Writer, width int, label, value string) {
	fmt.Fprintln(w, s.label.Render(fmt.Sprintf("%-*s", width, label))+s.value.Render(value))
}

func (a *app) printStatus(ctx context.Context, w io.Writer) error {
	s := newStatusStyles(w)

	fmt.Fprintln(w, s.header.Render("Database Status"))
	s.row(w, labelWidth, "Path", a.cfg.DBPath)

	db, err := a.openDB()
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.row(w, labelWidth, "Exists", s.bad.Render("no"))
			return nil
		}
		return err
	}
	defer db.Close()

	s.row(w, labelWidth, "Exists", s.good.Render("yes"))

	size, err := db.Size()
	if err != nil {
		return err
	}
	s.row(w, labelWidth, "Size", fmt.Sprintf("%s bytes (%s)", util.Grouped(size), util.FormatFileSize(size)))

	st, err := db.Stats(ctx)
	if err != nil {
		return err
	}
	s.row(w, labelWidth, "Pages", fmt.Sprintf("%s pages of %s", util.Grouped(st.PageCount), util.FormatFileSize(st.PageSize)))
	s.row(w, labelWidth, "Reclaimable", fmt.Sprintf("%s free pages (%s)", util.Grouped(st.FreelistCount), util.FormatFileSize(st.FreeBytes())))
	s.row(w, labelWidth, "Auto-vacuum", autoVacuumModes[st.AutoVacuum])

	maintainer := a.newMaintainer(db)
	ftsExists, err := maintainer.Exists(ctx)
	if err != nil {
		return err
	}
	if ftsExists {
		s.row(w, labelWidth, "FTS index", s.good.Render(maintainer.Table()))
	} else {
		s.row(w, labelWidth, "FTS index", s.bad.Render("missing"))
	}

	tables, err := db.Tables(ctx)
	if err != nil {
		return err
	}

	width := labelWidth
	for _, table := range tables {
		width = max(width, len(table)+4)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, s.header.Render("Tables"))
	for _, table := range tables {
		n, err := db.CountRows(ctx, table)
		if err != nil {
			return err
		}
		s.row(w, width, "  "+table, s.muted.Render(util.Grouped(n)+" rows"))
	}

	return nil
}
