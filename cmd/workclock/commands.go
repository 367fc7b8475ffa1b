package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/workclock/internal/adapters/fs"
	"github.com/bft-labs/workclock/internal/domain"
	"github.com/bft-labs/workclock/pkg/lifecycle"
	"github.com/bft-labs/workclock/pkg/log"
	"github.com/bft-labs/workclock/pkg/timelog"
)

type envFunc func() *runtimeEnv

type timerAction int

const (
	actionStart timerAction = iota
	actionPause
	actionResume
	actionStop
	actionSubmit
)

func newSaveCmd(env envFunc) *cobra.Command {
	var (
		kind        string
		description string
		priority    string
		machine     string
		parts       []string
		start       bool
	)

	cmd := &cobra.Command{
		Use:   "save [id]",
		Short: "Create a work order, or update one when an id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := env()
			ctx := cmd.Context()

			usage, err := parseParts(parts)
			if err != nil {
				return err
			}

			var wo *domain.WorkOrder
			if len(args) == 0 {
				wo = domain.NewWorkOrder(domain.Kind(kind), description)
			} else {
				if wo, err = rt.service.Get(ctx, args[0]); err != nil {
					return err
				}
				if cmd.Flags().Changed("description") {
					wo.Description = description
				}
			}
			if cmd.Flags().Changed("priority") || len(args) == 0 {
				wo.Priority = domain.Priority(priority)
			}
			if cmd.Flags().Changed("machine") || len(args) == 0 {
				wo.Machine = machine
			}
			wo.PartUsage = append(wo.PartUsage, usage...)

			var saved *domain.WorkOrder
			if start && len(args) == 0 {
				saved, err = rt.service.StartWorkOrder(ctx, wo)
			} else {
				saved, err = rt.service.Save(ctx, wo)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), saved)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(domain.KindMaintenance), "maintenance or production (new work orders only)")
	cmd.Flags().StringVar(&description, "description", "", "what the work order is about")
	cmd.Flags().StringVar(&priority, "priority", string(domain.PriorityMedium), "low, medium, high or critical")
	cmd.Flags().StringVar(&machine, "machine", "", "machine or asset the work is done on")
	cmd.Flags().BoolVar(&start, "start", false, "start the timer of the new work order right away")
	cmd.Flags().StringArrayVar(&parts, "part", nil, `part usage, e.g. "designation=Bearing 6204,qty=2,price=4.5,supplier=SKF,type=replacement"`)
	return cmd
}

func newActionCmd(env envFunc, use, short string, action timerAction) *cobra.Command {
	var (
		quantity float64
		unit     string
		note     string
	)

	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := env()
			ctx := cmd.Context()
			id := args[0]

			var cp *lifecycle.Checkpoint
			if cmd.Flags().Changed("quantity") || cmd.Flags().Changed("unit") || cmd.Flags().Changed("note") {
				cp = &lifecycle.Checkpoint{Quantity: quantity, Unit: unit, Note: note}
			}

			var (
				wo  *domain.WorkOrder
				err error
			)
			switch action {
			case actionStart:
				wo, err = rt.service.StartWorkOrder(ctx, &domain.WorkOrder{ID: id})
			case actionPause:
				wo, err = rt.service.PauseWorkOrder(ctx, id, cp)
			case actionResume:
				wo, err = rt.service.ResumeWorkOrder(ctx, id)
			case actionStop:
				wo, err = rt.service.StopWorkOrder(ctx, id, cp)
			case actionSubmit:
				wo, err = rt.service.SubmitWorkOrder(ctx, id)
			}
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), wo, wo.TimeStats)
		},
	}

	if action == actionPause || action == actionStop {
		cmd.Flags().Float64Var(&quantity, "quantity", 0, "quantity produced so far (production tasks)")
		cmd.Flags().StringVar(&unit, "unit", "", "unit of the quantity, e.g. pcs or kg")
		cmd.Flags().StringVar(&note, "note", "", "free-form note stored with the checkpoint")
	}
	return cmd
}

func newShowCmd(env envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a work order, or list your work orders",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := env()
			if len(args) == 1 {
				wo, err := rt.service.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), wo)
			}
			list, err := rt.service.Mine(cmd.Context())
			if err != nil {
				return err
			}
			return printList(cmd.OutOrStdout(), list)
		},
	}
}

func newStatsCmd(env envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <id>",
		Short: "Show time statistics, counting a running timer up to now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := env()
			wo, err := rt.service.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			s, err := rt.service.Stats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), wo, s)
		},
	}
}

func newFollowCmd(env envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "follow",
		Short: "Print work orders as they change (fs store only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := env()
			ctx := cmd.Context()

			store, ok := rt.store.(*fs.Store)
			if !ok {
				return domain.E(domain.ErrInvalidConfig, "follow", fmt.Sprintf("follow needs the fs store, not %q", rt.cfg.StoreDriver))
			}
			if rt.roster != nil {
				if err := rt.roster.Watch(ctx, rt.cfg.WatchDebounce); err != nil {
					return err
				}
			}

			changes, err := store.Watch(ctx, domain.CollectionWorkOrders, rt.cfg.WatchDebounce, rt.logger)
			if err != nil {
				return err
			}
			rt.logger.Info("following work orders", log.String("dir", store.Dir()))

			for change := range changes {
				wo, err := rt.service.Get(ctx, change.ID)
				if err != nil {
					rt.logger.Warn("read changed work order", log.String("id", change.ID), log.Err(err))
					continue
				}
				s, err := rt.service.Stats(ctx, change.ID)
				if err != nil {
					rt.logger.Warn("stats of changed work order", log.String("id", change.ID), log.Err(err))
					continue
				}
				if err := printSummary(cmd.OutOrStdout(), wo, s); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, wo *domain.WorkOrder, s timelog.Stats) error {
	_, err := fmt.Fprintf(w, "#%d %s [%s] effective=%s total=%s pauses=%d avg_pause=%s\n",
		wo.SequenceNumber, wo.ID, wo.Status,
		round(s.Effective), round(s.Total), s.PauseCount, round(s.AveragePauseDuration))
	return err
}

func printList(w io.Writer, list []*domain.WorkOrder) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tKIND\tSTATUS\tPRIORITY\tEFFECTIVE\tDESCRIPTION")
	for _, wo := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			wo.SequenceNumber, wo.ID, wo.Kind, wo.Status, wo.Priority,
			round(wo.TimeStats.Effective), truncate(wo.Description, 40))
	}
	return tw.Flush()
}

func round(d time.Duration) time.Duration {
	return d.Round(time.Second)
}

func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
