package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/aziis98/osf-optimize/internal/maintenance"
	"github.com/aziis98/osf-optimize/internal/util"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func newScheduleCmd(a *app) *cobra.Command {
	var (
		flags maintenance.Flags
		expr  string
		now   bool
	)

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run maintenance periodically on a cron schedule",
		Long: util.Dedent(`
			Stay in the foreground and run the optimizer every time the cron
			expression fires, until interrupted. Each run is logged like a
			single invocation; a failed run is retried at the next tick.
			The expression defaults to the schedule key of the config file.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("cron") {
				expr = a.cfg.Schedule
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.schedule(ctx, expr, maintenance.ResolvePlan(flags), now)
		},
	}

	addPlanFlags(scheduleCmd, &flags)
	scheduleCmd.Flags().StringVar(&expr, "cron", "", "5-field cron expression (default from config)")
	scheduleCmd.Flags().BoolVar(&now, "now", false, "also run once immediately")

	return scheduleCmd
}

// schedule blocks until ctx is done, running plan whenever expr fires.
func (a *app) schedule(ctx context.Context, expr string, plan maintenance.Plan, now bool) error {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	job := cron.FuncJob(func() {
		if err := a.optimize(ctx, plan); err != nil {
			a.log.Errorf("Optimization failed: %v", err)
		}
	})

	c := cron.New(cron.WithParser(cronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(sched, job)

	a.log.Infof("Scheduled optimization (%s) on %q, next run at %s", plan, expr, sched.Next(time.Now()).Format("2006-01-02 15:04"))

	if now {
		job.Run()
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	a.log.Infof("Scheduler stopped")
	return nil
}
