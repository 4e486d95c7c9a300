package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
)

// JobsOptions configures one invocation of the jobs command.
type JobsOptions struct {
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

const jobsUsage = `usage: conecta2 jobs <command> [flags]

commands:
  trigger <job>   enqueue a job (users:sync)
  stats           show default queue counters
  scheduled       list scheduled tasks

flags:
  --json          print JSON instead of text
`

// JobsCommand runs a jobs subcommand and returns the process exit code.
func (c *JobsCLI) JobsCommand(ctx context.Context, opts JobsOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if len(opts.Args) == 0 {
		_, _ = fmt.Fprint(opts.Stderr, jobsUsage)
		return 2
	}

	fs := flag.NewFlagSet("jobs "+opts.Args[0], flag.ContinueOnError)
	fs.SetOutput(opts.Stderr)
	jsonOutput := fs.Bool("json", false, "print JSON")
	size := fs.Int("size", 10, "page size for scheduled")
	if err := fs.Parse(opts.Args[1:]); err != nil {
		return 2
	}

	switch opts.Args[0] {
	case "trigger":
		if fs.NArg() != 1 {
			_, _ = fmt.Fprintln(opts.Stderr, "jobs trigger: exactly one job name required")
			return 2
		}
		info, err := c.Trigger(ctx, fs.Arg(0))
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: %v\n", err)
			return 1
		}
		if *jsonOutput {
			return encodeJSON(opts, map[string]string{"id": info.ID, "type": info.Type, "queue": info.Queue})
		}
		_, _ = fmt.Fprintf(opts.Stdout, "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
		return 0
	case "stats":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: %v\n", err)
			return 1
		}
		if *jsonOutput {
			return encodeJSON(opts, stats)
		}
		_, _ = fmt.Fprintf(opts.Stdout, "queue %s: pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
		return 0
	case "scheduled":
		tasks, err := c.ListScheduled(ctx, *size)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs scheduled: %v\n", err)
			return 1
		}
		if *jsonOutput {
			type scheduled struct {
				ID        string `json:"id"`
				Type      string `json:"type"`
				NextRunAt string `json:"next_run_at"`
			}
			out := make([]scheduled, 0, len(tasks))
			for _, task := range tasks {
				out = append(out, scheduled{ID: task.ID, Type: task.Type, NextRunAt: task.NextProcessAt.UTC().Format("2006-01-02T15:04:05Z")})
			}
			return encodeJSON(opts, out)
		}
		if len(tasks) == 0 {
			_, _ = fmt.Fprintln(opts.Stdout, "no scheduled tasks")
			return 0
		}
		for _, task := range tasks {
			_, _ = fmt.Fprintf(opts.Stdout, "%s %s %s\n", task.ID, task.Type, task.NextProcessAt.UTC().Format("2006-01-02 15:04:05"))
		}
		return 0
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "jobs: unknown command %q\n", opts.Args[0])
		_, _ = fmt.Fprint(opts.Stderr, jobsUsage)
		return 2
	}
}

func encodeJSON(opts JobsOptions, v any) int {
	if err := json.NewEncoder(opts.Stdout).Encode(v); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs: encode json: %v\n", err)
		return 1
	}
	return 0
}
