package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"flowcanvas/internal/codec"
	"flowcanvas/internal/config"
	"flowcanvas/internal/domain"
	"flowcanvas/internal/execution"
	"flowcanvas/internal/registry"
	"flowcanvas/internal/service"
	"flowcanvas/internal/ui"
	"flowcanvas/internal/watcher"
)

// outputWidth bounds result text in the run report
const outputWidth = 60

// fileRun executes one project file in a throwaway in-memory store
type fileRun struct {
	cfg    *config.Config
	path   string
	nodeID string
	out    string
	w      io.Writer
}

func runCmd() *cobra.Command {
	var nodeID, out string
	var watch bool

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a project file's workflow, or one node of it",
		Long: "Run loads a project from JSON, YAML or TOML, executes it and prints\n" +
			"each node's status and output. With --watch the file is re-run on every save.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if watch && out != "" && samePath(out, args[0]) {
				return fmt.Errorf("--out %s is the watched file", out)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			defer startTracing(ctx, cfg)()

			fr := &fileRun{cfg: cfg, path: args[0], nodeID: nodeID, out: out, w: cmd.OutOrStdout()}
			if !watch {
				return fr.run(ctx)
			}

			if err := fr.run(ctx); err != nil {
				ui.Bad.Fprintf(fr.w, "%v\n", err)
			}
			w := watcher.New(fr.path, func(ctx context.Context, path string) {
				fmt.Fprintln(fr.w)
				if err := fr.run(ctx); err != nil {
					ui.Bad.Fprintf(fr.w, "%v\n", err)
				}
			})
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&nodeID, "node", "", "Run only this node")
	cmd.Flags().BoolVar(&watch, "watch", false, "Re-run whenever the file changes")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the project with its results to this file")
	return cmd
}

func (fr *fileRun) run(ctx context.Context) error {
	p, err := readProject(fr.path)
	if err != nil {
		return err
	}

	svc, err := newService(fr.cfg, ":memory:", service.NewEventBus())
	if err != nil {
		return err
	}
	defer svc.Close()

	if _, err := svc.ImportProject(ctx, p); err != nil {
		return err
	}

	ui.Brand.Fprintf(fr.w, "%s", p.Name)
	ui.Subtle.Fprintf(fr.w, " (%s)\n", fr.path)

	if fr.nodeID != "" {
		n, err := svc.RunNode(ctx, p.ID, fr.nodeID)
		if err != nil {
			return err
		}
		printNodes(fr.w, []*domain.Node{n})
		if n.Data.Status == domain.NodeStatusError {
			return fmt.Errorf("node %s failed", n.ID)
		}
	} else {
		report, err := svc.RunWorkflow(ctx, p.ID)
		if err != nil {
			return err
		}
		final, err := svc.GetProject(ctx, p.ID)
		if err != nil {
			return err
		}
		printReport(fr.w, report, final)
		if len(report.Failed) > 0 {
			return fmt.Errorf("%d of %d nodes failed", len(report.Failed), report.Plan.Len())
		}
	}

	if fr.out != "" {
		return writeProject(ctx, svc, p.ID, fr.out)
	}
	return nil
}

func readProject(path string) (*domain.Project, error) {
	c, err := codec.ForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := c.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

func writeProject(ctx context.Context, svc *service.ProjectService, id, path string) error {
	c, err := codec.ForPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := svc.Export(ctx, id, c.Format(), f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printReport(w io.Writer, report *execution.Report, p *domain.Project) {
	byID := make(map[string]*domain.Node, len(p.Nodes))
	for _, n := range p.Nodes {
		byID[n.ID] = n
	}

	var ordered []*domain.Node
	for i, level := range report.Plan.Levels {
		ui.Info.Fprintf(w, "  level %d:", i+1)
		for _, id := range level {
			fmt.Fprintf(w, " %s", id)
			if n, ok := byID[id]; ok {
				ordered = append(ordered, n)
			}
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
	printNodes(w, ordered)

	fmt.Fprintln(w)
	if len(report.Failed) == 0 {
		ui.Good.Fprintf(w, "  %d nodes done\n", len(report.Done))
		return
	}
	ui.Warn.Fprintf(w, "  %d done, %d failed\n", len(report.Done), len(report.Failed))
}

func printNodes(w io.Writer, nodes []*domain.Node) {
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		detail := n.Data.OutputResult
		if n.Data.Status == domain.NodeStatusError {
			detail = n.Data.ErrorMessage
		} else if len(n.Data.OutputList) > 1 {
			detail = fmt.Sprintf("%s (+%d)", detail, len(n.Data.OutputList)-1)
		}
		rows = append(rows, []string{
			n.ID,
			string(n.Type),
			n.Data.Label,
			registry.Truncate(detail, outputWidth),
			ui.Status(n.Data.Status),
		})
	}
	ui.Table(w, []string{"NODE", "TYPE", "LABEL", "OUTPUT", "STATUS"}, rows)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
