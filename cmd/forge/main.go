package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/mltmacster/agentic-empire/internal/coordinator"
	"github.com/mltmacster/agentic-empire/internal/fault"
	"github.com/mltmacster/agentic-empire/internal/journal"
	"github.com/mltmacster/agentic-empire/internal/ledger"
	"github.com/mltmacster/agentic-empire/internal/registry"
	"github.com/mltmacster/agentic-empire/internal/store"
	"github.com/mltmacster/agentic-empire/internal/ux"
)

func main() {
	app := &cli.Command{
		Name:  "forge",
		Usage: "Manifest-driven task orchestration and validation",
		Description: "Failures exit with a stable code per error kind: schema violation 10, " +
			"duplicate id 11, unknown dependency 12, cycle 13, illegal transition 14, " +
			"dependencies not met 15, unavailable worker 16, not found 17. " +
			"Store failures and other fatal errors exit 1.",
		Commands: []*cli.Command{
			initCmd(),
			createTaskCmd(),
			assignTaskCmd(),
			transitionTaskCmd(),
			statusReportCmd(),
			listWorkersCmd(),
			historyCmd(),
			verifyCmd(),
			sweepCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", ux.Red, ux.Reset, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to its documented process exit code.
func exitCode(err error) int {
	if code := fault.KindOf(err).Code(); code != 0 {
		return code
	}
	return 1
}

// core bundles the loaded components for one command invocation.
type core struct {
	st  *store.Dir
	reg *registry.Registry
	led *ledger.Ledger
	jnl *journal.Journal
	co  *coordinator.Coordinator
}

func openCore() (*core, error) {
	root, err := findProjectRoot()
	if err != nil {
		return nil, err
	}
	reg, err := registry.Load(filepath.Join(root, ".forge", "manifest.yaml"))
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	st, err := store.Open(filepath.Join(root, ".forge", "data"))
	if err != nil {
		return nil, err
	}
	led, err := ledger.Load(st)
	if err != nil {
		return nil, err
	}
	jnl, err := journal.Open(st)
	if err != nil {
		return nil, err
	}
	return &core{
		st:  st,
		reg: reg,
		led: led,
		jnl: jnl,
		co:  coordinator.New(reg, led, jnl),
	}, nil
}

// submitAndSave runs one mutating request and persists the task snapshot.
func (c *core) submitAndSave(req coordinator.Request) (coordinator.Response, error) {
	resp, err := c.co.Submit(req)
	if err != nil {
		return resp, err
	}
	if err := c.led.Save(c.st); err != nil {
		return resp, fmt.Errorf("saving ledger: %w", err)
	}
	return resp, nil
}

func createTaskCmd() *cli.Command {
	return &cli.Command{
		Name:      "create-task",
		Usage:     "Create a new task",
		ArgsUsage: "<task-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Human-readable title (required)"},
			&cli.StringFlag{Name: "desc", Usage: "Detailed description"},
			&cli.StringFlag{Name: "priority", Value: "medium", Usage: "critical, high, medium, or low"},
			&cli.StringFlag{Name: "requires", Usage: "Capability tag a worker needs to be assigned"},
			&cli.StringSliceFlag{Name: "dep", Usage: "Dependency task id (repeatable)"},
			&cli.IntFlag{Name: "complexity", Value: 5, Usage: "Complexity score 1-10"},
			&cli.IntFlag{Name: "clearance", Value: 2, Usage: "Security clearance 1-5"},
			&cli.StringFlag{Name: "due", Usage: "Target completion, RFC 3339"},
			&cli.StringFlag{Name: "actor", Usage: "Worker id creating the task"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("task-id argument is required")
			}
			spec := ledger.Spec{
				ID:           id,
				Title:        cmd.String("title"),
				Description:  cmd.String("desc"),
				Priority:     cmd.String("priority"),
				Requires:     cmd.String("requires"),
				Dependencies: cmd.StringSlice("dep"),
				Complexity:   int(cmd.Int("complexity")),
				Clearance:    int(cmd.Int("clearance")),
			}
			if due := cmd.String("due"); due != "" {
				t, err := time.Parse(time.RFC3339, due)
				if err != nil {
					return fmt.Errorf("invalid --due %q: %w", due, err)
				}
				spec.TargetCompletion = t
			}

			c, err := openCore()
			if err != nil {
				return err
			}
			resp, err := c.submitAndSave(coordinator.CreateTask{Spec: spec, Actor: cmd.String("actor")})
			if err != nil {
				return err
			}
			fmt.Printf("%s✓%s created %s (journal #%d)\n", ux.Green, ux.Reset, resp.TaskID, resp.Seq)
			return nil
		},
	}
}

func assignTaskCmd() *cli.Command {
	return &cli.Command{
		Name:      "assign-task",
		Usage:     "Assign a task to a worker",
		ArgsUsage: "<task-id> <worker-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			taskID, workerID := cmd.Args().Get(0), cmd.Args().Get(1)
			if taskID == "" || workerID == "" {
				return fmt.Errorf("task-id and worker-id arguments are required")
			}
			c, err := openCore()
			if err != nil {
				return err
			}
			resp, err := c.submitAndSave(coordinator.AssignTask{TaskID: taskID, Worker: workerID})
			if err != nil {
				return err
			}
			fmt.Printf("%s✓%s assigned %s to %s (journal #%d)\n", ux.Green, ux.Reset, taskID, workerID, resp.Seq)
			return nil
		},
	}
}

func transitionTaskCmd() *cli.Command {
	return &cli.Command{
		Name:      "transition-task",
		Usage:     "Move a task to a new status",
		ArgsUsage: "<task-id> <status>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "actor", Usage: "Worker id requesting the transition (must own the task)"},
			&cli.StringFlag{Name: "summary", Usage: "Journal summary for this change"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			taskID, next := cmd.Args().Get(0), cmd.Args().Get(1)
			if taskID == "" || next == "" {
				return fmt.Errorf("task-id and status arguments are required")
			}
			c, err := openCore()
			if err != nil {
				return err
			}
			resp, err := c.submitAndSave(coordinator.TransitionTask{
				TaskID:  taskID,
				Next:    next,
				Actor:   cmd.String("actor"),
				Summary: cmd.String("summary"),
			})
			if err != nil {
				return err
			}
			fmt.Printf("%s✓%s %s → %s (journal #%d)\n", ux.Green, ux.Reset, taskID, next, resp.Seq)
			return nil
		},
	}
}

func statusReportCmd() *cli.Command {
	return &cli.Command{
		Name:  "status-report",
		Usage: "Show aggregate worker and task status",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := openCore()
			if err != nil {
				return err
			}
			resp, err := c.co.Submit(coordinator.StatusReport{})
			if err != nil {
				return err
			}
			ux.RenderReport(os.Stdout, resp.Report)
			return nil
		},
	}
}

func listWorkersCmd() *cli.Command {
	return &cli.Command{
		Name:  "list-workers",
		Usage: "List workers from the manifest",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Usage: "Filter by status (idle, active, blocked, retired)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := openCore()
			if err != nil {
				return err
			}
			resp, err := c.co.Submit(coordinator.ListWorkers{Status: cmd.String("status")})
			if err != nil {
				return err
			}
			ux.RenderWorkers(os.Stdout, resp.Workers)
			return nil
		},
	}
}

func historyCmd() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show a task's journal chain",
		ArgsUsage: "<task-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "markdown", Usage: "Render entries as front-matter markdown"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			taskID := cmd.Args().First()
			if taskID == "" {
				return fmt.Errorf("task-id argument is required")
			}
			c, err := openCore()
			if err != nil {
				return err
			}
			entries := c.co.History(taskID)
			if cmd.Bool("markdown") {
				for _, e := range entries {
					doc, err := journal.RenderMarkdown(e)
					if err != nil {
						return err
					}
					fmt.Println(doc)
				}
				return nil
			}
			ux.RenderHistory(os.Stdout, entries)
			return nil
		},
	}
}

func verifyCmd() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify the journal's hash chain and sequence",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := openCore()
			if err != nil {
				return err
			}
			if err := c.jnl.Verify(); err != nil {
				return err
			}
			fmt.Printf("%s✓%s journal verified (%d entries)\n", ux.Green, ux.Reset, c.jnl.Len())
			return nil
		},
	}
}

func sweepCmd() *cli.Command {
	return &cli.Command{
		Name:  "sweep-overdue",
		Usage: "Block pending tasks whose target completion has elapsed",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := openCore()
			if err != nil {
				return err
			}
			blocked, err := c.co.SweepOverdue(time.Now())
			if err != nil {
				return err
			}
			if saveErr := c.led.Save(c.st); saveErr != nil {
				return fmt.Errorf("saving ledger: %w", saveErr)
			}
			if len(blocked) == 0 {
				fmt.Printf("%snothing overdue%s\n", ux.Dim, ux.Reset)
				return nil
			}
			for _, id := range blocked {
				fmt.Printf("%s⚠%s blocked %s\n", ux.Yellow, ux.Reset, id)
			}
			return nil
		},
	}
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a .forge/ directory with an example manifest",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			path := filepath.Join(dir, ".forge", "manifest.yaml")
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(exampleManifest), 0644); err != nil {
				return err
			}
			fmt.Printf("%s✓%s wrote %s\n", ux.Green, ux.Reset, path)
			return nil
		},
	}
}

const exampleManifest = `platform: Sovereign Forge
workers:
  - id: architect
    name: Architect
    role: architecture
    capabilities: [design, review]
    status: idle
    clearance: 3
  - id: builder
    name: Builder
    role: engineering
    capabilities: [build, test]
    status: idle
    parent: architect
    clearance: 2
  - id: sentinel
    name: Sentinel
    role: security
    capabilities: [audit, review]
    status: idle
    clearance: 4
`

// findProjectRoot walks up from cwd looking for .forge/manifest.yaml.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, ".forge", "manifest.yaml")
		if _, err := os.Stat(path); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no .forge/manifest.yaml found (searched from cwd to root; run 'forge init')")
		}
		dir = parent
	}
}
