package cmd

import (
	"github.com/spf13/cobra"

	"github.com/aziis98/osf-optimize/internal/maintenance"
	"github.com/aziis98/osf-optimize/internal/util"
)

func newRebuildFtsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-fts",
		Short: "Create or rebuild the full-text search index",
		Long: util.Dedent(`
			Bring the full-text search table in sync with its content table
			without running any other maintenance. The table is created and
			populated on first use and rebuilt afterwards.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				a.log.Errorf("FTS update failed: %v", maintenance.ConnectionError(err))
				return errReported
			}
			defer db.Close()

			res, err := a.newMaintainer(db).Update(cmd.Context())
			if err != nil {
				a.log.Errorf("FTS update failed: %v", &maintenance.StepError{Step: maintenance.StepFTS, Kind: maintenance.KindFTS, Err: err})
				return errReported
			}

			a.log.Infof("FTS index %s with %s rows in %.2fs", res.Action, util.Grouped(res.Rows), res.Elapsed.Seconds())
			return nil
		},
	}
}
