package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/pterm/pterm"

	"github.com/melih-ucgun/xal/internal/config"
	"github.com/melih-ucgun/xal/internal/core"
	"github.com/melih-ucgun/xal/internal/inventory"
	"github.com/melih-ucgun/xal/internal/session"
	"github.com/melih-ucgun/xal/internal/system"
)

// Manager runs operations across hosts. Every host gets its own session.
type Manager struct {
	Concurrency int
	Options     []session.Option
	Logger      *slog.Logger
	Quiet       bool // no progress output

	// Vars are the template vars of tasks. Host vars override them.
	Vars map[string]string
}

// NewManager creates a Manager. A concurrency below one means one host at
// a time.
func NewManager(concurrency int, opts ...session.Option) *Manager {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Manager{Concurrency: concurrency, Options: opts, Logger: slog.Default()}
}

// TaskResult is the outcome of one task on one host.
type TaskResult struct {
	ID      string
	Line    string
	Result  *core.Result
	Skipped bool
}

// Outcome is what happened on one host.
type Outcome struct {
	Host    inventory.Host
	Facts   *system.Facts
	Result  *core.Result // Run only
	Tasks   []TaskResult // RunTasks only
	Skipped bool         // the when condition did not hold
	Err     error
}

// Failed reports whether the host errored or a command exited non-zero.
func (o Outcome) Failed() bool {
	if o.Err != nil {
		return true
	}
	if o.Result != nil && !o.Result.Succeeded() {
		return true
	}
	for _, t := range o.Tasks {
		if t.Result != nil && !t.Result.Succeeded() {
			return true
		}
	}
	return false
}

// Failures counts failed outcomes.
func Failures(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

// Facts detects facts on every host.
func (m *Manager) Facts(ctx context.Context, hosts []inventory.Host) []Outcome {
	return m.each(ctx, hosts, "Gathering facts", func(_ *core.Session, _ string, out *Outcome) error {
		return nil
	})
}

// Run executes line on every host whose facts satisfy when. An empty when
// selects all hosts.
func (m *Manager) Run(ctx context.Context, hosts []inventory.Host, line, when string) []Outcome {
	return m.each(ctx, hosts, "Running "+line, func(s *core.Session, prefix string, out *Outcome) error {
		ok, err := system.Evaluate(when, out.Facts)
		if err != nil {
			return err
		}
		if !ok {
			out.Skipped = true
			m.println(prefix + "Skipped")
			return nil
		}
		res, err := s.Run(line)
		if err != nil {
			return err
		}
		out.Result = res
		m.report(prefix, line, res)
		return nil
	})
}

// RunTasks executes the task layers on every host. Task lines are rendered
// with .Vars, .Facts and .Host. A host stops at its first failing task.
func (m *Manager) RunTasks(ctx context.Context, hosts []inventory.Host, layers [][]config.Task) []Outcome {
	return m.each(ctx, hosts, "Running tasks", func(s *core.Session, prefix string, out *Outcome) error {
		vars := make(map[string]string, len(m.Vars)+len(out.Host.Vars))
		maps.Copy(vars, m.Vars)
		maps.Copy(vars, out.Host.Vars)
		data := map[string]any{"Vars": vars, "Facts": out.Facts, "Host": out.Host}

		for _, layer := range layers {
			for _, task := range layer {
				ok, err := system.Evaluate(task.When, out.Facts)
				if err != nil {
					return fmt.Errorf("task %s: %w", task.ID, err)
				}
				if !ok {
					out.Tasks = append(out.Tasks, TaskResult{ID: task.ID, Skipped: true})
					m.println(prefix + task.ID + ": skipped")
					continue
				}

				line, err := config.Render(task.Run, data)
				if err != nil {
					return fmt.Errorf("task %s: %w", task.ID, err)
				}
				res, err := s.Run(line)
				if err != nil {
					return fmt.Errorf("task %s: %w", task.ID, err)
				}
				out.Tasks = append(out.Tasks, TaskResult{ID: task.ID, Line: line, Result: res})
				m.report(prefix+task.ID+": ", line, res)
				if !res.Succeeded() {
					return nil
				}
			}
		}
		return nil
	})
}

// each opens a session per host, detects its facts and calls fn. At most
// Concurrency hosts are handled at once. Outcomes keep the order of hosts.
func (m *Manager) each(ctx context.Context, hosts []inventory.Host, title string, fn func(s *core.Session, prefix string, out *Outcome) error) []Outcome {
	outcomes := make([]Outcome, len(hosts))
	concurrency := max(m.Concurrency, 1)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	if !m.Quiet {
		pterm.DefaultSection.Printf("%s: %d hosts (concurrency: %d)", title, len(hosts), concurrency)
	}

	for i, host := range hosts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out := &outcomes[i]
			out.Host = host
			prefix := pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprintf("[%s] ", host.Label())

			if err := ctx.Err(); err != nil {
				out.Err = err
				return
			}
			out.Err = m.runHost(ctx, host, prefix, out, fn)
			if out.Err != nil {
				m.logger().Warn("host failed", "host", host.Label(), "error", out.Err)
				if !m.Quiet {
					pterm.Error.Println(prefix + out.Err.Error())
				}
			}
		}()
	}
	wg.Wait()
	return outcomes
}

func (m *Manager) runHost(ctx context.Context, host inventory.Host, prefix string, out *Outcome, fn func(*core.Session, string, *Outcome) error) error {
	m.println(prefix + "Connecting...")
	opts := append([]session.Option{session.WithLogger(m.logger().With("host", host.Label()))}, m.Options...)
	s, err := session.FromHost(ctx, host, opts...)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer s.Close()

	facts, err := system.Detect(s)
	if err != nil {
		return fmt.Errorf("detect facts: %w", err)
	}
	out.Facts = facts
	m.println(prefix + fmt.Sprintf("OS: %s / %s", facts.Distro, facts.Version))

	return fn(s, prefix, out)
}

func (m *Manager) report(prefix, line string, res *core.Result) {
	if m.Quiet {
		return
	}
	if res.Succeeded() {
		pterm.Success.Println(prefix + line)
		return
	}
	pterm.Error.Printfln("%s%s (exit %d)", prefix, line, res.ReturnCode)
}

func (m *Manager) println(s string) {
	if !m.Quiet {
		pterm.Println(s)
	}
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}
