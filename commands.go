package main

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"text/tabwriter"

	"github.com/gosuri/uiprogress"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"coilfield/coil_geometry"
	"coilfield/field_line"
	"coilfield/model"
	"coilfield/solver"
)

func newSolveCmd(opts *rootOptions) *cobra.Command {
	var (
		column   int
		progress bool
	)
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve the coil table on the configured grid and print the axial Bz profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, grid, err := solveTable(cmd.Context(), opts, progress)
			if err != nil {
				return err
			}
			_, nr := grid.Shape()
			if column < 0 || column >= nr {
				return fmt.Errorf("column %d out of range [0,%d)", column, nr)
			}
			return writeProfile(cmd.OutOrStdout(), fields, grid, column)
		},
	}
	cmd.Flags().IntVar(&column, "column", 0, "radial index of the printed profile")
	cmd.Flags().BoolVar(&progress, "progress", true, "show a progress bar per section")
	return cmd
}

func newTraceCmd(opts *rootOptions) *cobra.Command {
	var progress bool
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Solve the coil table and trace field lines through the total field",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, grid, err := solveTable(cmd.Context(), opts, progress)
			if err != nil {
				return err
			}
			tracer := field_line.NewTracer(opts.cfg.Tracer)
			tracer.Workers = opts.cfg.Workers
			traces, err := tracer.Trace(cmd.Context(), fields[model.Total], grid)
			if err != nil {
				return err
			}
			return writeTraces(cmd.OutOrStdout(), traces)
		},
	}
	cmd.Flags().BoolVar(&progress, "progress", true, "show a progress bar per section")
	return cmd
}

// solveTable 逐段求解线圈表并合并
func solveTable(ctx context.Context, opts *rootOptions, progress bool) (model.MagnetFields, *model.Grid, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sections, err := coil_geometry.LoadSections(opts.coilsPath)
	if err != nil {
		return nil, nil, err
	}
	grid, err := opts.cfg.Grid.Build()
	if err != nil {
		return nil, nil, err
	}

	if progress {
		uiprogress.Start()
		defer uiprogress.Stop()
	}

	fields := make([]model.MagnetFields, 0, len(sections))
	for _, section := range sections {
		coils, err := coil_geometry.DecomposeAll(section.Coils)
		if err != nil {
			return nil, nil, fmt.Errorf("section %s: %w", section.Name, err)
		}
		solveOpts := []solver.Option{solver.WithWorkers(opts.cfg.Workers)}
		if progress {
			solveOpts = append(solveOpts, solver.WithProgress(sectionBar(section.Name, coils)))
		}
		f, err := solver.MagnetSolve(ctx, coils, grid, solveOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("section %s: %w", section.Name, err)
		}
		fields = append(fields, f)
	}
	all, err := solver.Combine(fields...)
	if err != nil {
		return nil, nil, err
	}
	log.WithField("coils", len(all.Names())).Info("线圈表求解完成")
	return all, grid, nil
}

// sectionBar 每段一个进度条，按电流环计数
func sectionBar(name string, coils []model.Coil) solver.ProgressFunc {
	loops := 0
	for _, c := range coils {
		loops += len(c.Loops)
	}
	var current atomic.Value
	current.Store("")
	bar := uiprogress.AddBar(loops).AppendCompleted().PrependElapsed()
	bar.PrependFunc(func(b *uiprogress.Bar) string {
		return fmt.Sprintf("%s %-8s", name, current.Load().(string))
	})
	return func(coil string, done, total int) {
		current.Store(coil)
		bar.Incr()
	}
}

func writeProfile(w io.Writer, fields model.MagnetFields, grid *model.Grid, column int) error {
	names := fields.Names()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "z[m]\ttotal[G]")
	for _, name := range names {
		fmt.Fprintf(tw, "\t%s[G]", name)
	}
	fmt.Fprintln(tw)

	total := fields[model.Total].AxialProfile(column)
	profiles := make([][]float64, len(names))
	for k, name := range names {
		profiles[k] = fields[name].AxialProfile(column)
	}
	for i, z := range grid.Z {
		fmt.Fprintf(tw, "%.6g\t%.6g", z, solver.Gauss(total[i]))
		for k := range names {
			fmt.Fprintf(tw, "\t%.6g", solver.Gauss(profiles[k][i]))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func writeTraces(w io.Writer, traces []model.Trace) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "line\tseed_r[m]\tsamples\tend_z[m]\tend_r[m]")
	for k, tr := range traces {
		n := tr.Len()
		if n == 0 {
			fmt.Fprintf(tw, "%d\t-\t0\t-\t-\n", k)
			continue
		}
		fmt.Fprintf(tw, "%d\t%.6g\t%d\t%.6g\t%.6g\n", k, tr.R[0], n, tr.Z[n-1], tr.R[n-1])
	}
	return tw.Flush()
}
