package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskline/internal/app"
	"taskline/internal/config"
	"taskline/internal/domain"
	"taskline/internal/schema"
	tasksdk "taskline/sdk/go"
)

// Exit codes.
const (
	exitOK           = 0
	exitUsage        = 1
	exitFileNotFound = 2
	exitBadTaskID    = 3
	exitFailure      = 4
	exitInvalidTask  = 5
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// cli carries the per-invocation state shared by the commands.
type cli struct {
	v       *viper.Viper
	out     io.Writer
	errOut  io.Writer
	started bool
}

// reportedError is an error whose details were already written to the
// output. run only maps it to an exit code.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	c := &cli{v: config.NewViper(), out: out, errOut: errOut}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	code := c.exitCode(err)
	var reported reportedError
	if !errors.As(err, &reported) {
		fmt.Fprintln(errOut, "error:", err)
	}
	if code == exitUsage {
		fmt.Fprintf(errOut, "Run '%s --help' for usage.\n", root.Name())
	}
	return code
}

func (c *cli) exitCode(err error) int {
	var (
		notFound  *app.FileNotFoundError
		badID     *app.MalformedTaskIDError
		violation *schema.ValidationFailure
	)
	switch {
	case errors.As(err, &notFound):
		return exitFileNotFound
	case errors.As(err, &badID):
		return exitBadTaskID
	case errors.As(err, &violation):
		return exitInvalidTask
	case !c.started:
		return exitUsage
	default:
		return exitFailure
	}
}

func (c *cli) rootCmd() *cobra.Command {
	var createPath, completeID string
	root := &cobra.Command{
		Use:   "taskctl",
		Short: "TaskService command-line client",
		Long: `taskctl submits tasks to a TaskService and marks them completed.

A task file (JSON, or YAML with a .yaml/.yml extension) is validated against
the task schema before anything is sent; every violation is reported at once.
Credentials and the service address come from taskctl.yml, a .env file,
TASKCTL_* environment variables or flags, in increasing precedence.`,
		Example: `  taskctl -c task.json
  taskctl --complete-task 42
  taskctl validate task.yaml
  taskctl serve --user ann@example.com:secret`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: c.runE(func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("create-task") {
				return c.createTask(cmd.Context(), createPath)
			}
			return c.completeTask(cmd.Context(), completeID)
		}),
	}
	root.Flags().StringVarP(&createPath, "create-task", "c", "", "create the task described by this file")
	root.Flags().StringVarP(&completeID, "complete-task", "f", "", "mark the task with this id completed")
	root.MarkFlagsMutuallyExclusive("create-task", "complete-task")
	root.MarkFlagsOneRequired("create-task", "complete-task")

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default ./"+config.FileName+")")
	pf.String("env-file", ".env", "dotenv file loaded into the environment")
	pf.Bool("json", false, "output JSON")
	pf.Bool("verbose", false, "log requests to stderr")
	pf.String("schema", "", "task schema: embed:<name> or a file path")
	pf.String("host", "", "service host")
	pf.Int("port", 0, "service port")
	pf.String("certificate", "", "PEM bundle trusted for the service")
	pf.Duration("timeout", 0, "request timeout")
	pf.Bool("plaintext", false, "use HTTP instead of HTTPS")
	pf.String("username", "", "account email")
	_ = c.v.BindPFlag("config", pf.Lookup("config"))
	_ = c.v.BindPFlag("env-file", pf.Lookup("env-file"))
	_ = c.v.BindPFlag("json", pf.Lookup("json"))
	_ = c.v.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = c.v.BindPFlag("schema", pf.Lookup("schema"))
	_ = c.v.BindPFlag("server.host", pf.Lookup("host"))
	_ = c.v.BindPFlag("server.port", pf.Lookup("port"))
	_ = c.v.BindPFlag("server.certificate", pf.Lookup("certificate"))
	_ = c.v.BindPFlag("server.timeout", pf.Lookup("timeout"))
	_ = c.v.BindPFlag("server.plaintext", pf.Lookup("plaintext"))
	_ = c.v.BindPFlag("credentials.username", pf.Lookup("username"))

	root.AddCommand(c.validateCmd())
	root.AddCommand(c.schemaCmd())
	root.AddCommand(c.configCmd())
	root.AddCommand(c.serveCmd())
	return root
}

// runE marks the invocation as started once cobra has accepted the
// arguments and flags. Errors returned before that are usage errors.
func (c *cli) runE(fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c.started = true
		return fn(cmd, args)
	}
}

func (c *cli) logger() *log.Logger {
	if c.v.GetBool("verbose") {
		return log.New(c.errOut, "taskctl: ", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

func (c *cli) createTask(ctx context.Context, path string) error {
	cfg, err := config.Resolve(c.v)
	if err != nil {
		return err
	}
	pipeline, err := app.NewPipeline(cfg.Schema)
	if err != nil {
		return err
	}
	task, err := pipeline.LoadTask(path)
	if err != nil {
		return c.reportViolations(err)
	}
	if err := cfg.ValidateClient(); err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	c.logger().Printf("CreateTask %s -> %s", path, cfg.BaseURL())
	resp, err := client.CreateTask(ctx, app.NewCreateTaskRequest(credentials(cfg), task))
	if err != nil {
		return err
	}
	if c.v.GetBool("json") {
		if err := printJSON(c.out, resp); err != nil {
			return err
		}
	} else {
		c.printOutcome(resp.Err())
		if resp.Err() == nil {
			fmt.Fprintf(c.out, "task has id: %d\n", resp.TaskID)
		}
	}
	if err := resp.Err(); err != nil {
		return reportedError{err}
	}
	return nil
}

func (c *cli) completeTask(ctx context.Context, rawID string) error {
	id, err := app.ParseTaskID(rawID)
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(c.v)
	if err != nil {
		return err
	}
	if err := cfg.ValidateClient(); err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	c.logger().Printf("CompleteTask %d -> %s", id, cfg.BaseURL())
	resp, err := client.CompleteTask(ctx, app.NewCompleteTaskRequest(credentials(cfg), id))
	if err != nil {
		return err
	}
	if c.v.GetBool("json") {
		if err := printJSON(c.out, resp); err != nil {
			return err
		}
	} else {
		c.printOutcome(resp.Err())
	}
	if err := resp.Err(); err != nil {
		return reportedError{err}
	}
	return nil
}

func (c *cli) printOutcome(remote error) {
	if remote == nil {
		fmt.Fprintln(c.out, "operation was successful")
		return
	}
	fmt.Fprintln(c.out, "operation was unsuccessful")
	var re *tasksdk.RemoteError
	if errors.As(remote, &re) {
		fmt.Fprintln(c.out, "message:", re.Message)
		return
	}
	fmt.Fprintln(c.out, "message:", remote)
}

// reportViolations prints a validation failure in full and marks it
// reported. Other errors pass through.
func (c *cli) reportViolations(err error) error {
	var failure *schema.ValidationFailure
	if !errors.As(err, &failure) {
		return err
	}
	if c.v.GetBool("json") {
		if perr := printJSON(c.out, map[string]any{"valid": false, "violations": failure.Violations}); perr != nil {
			return perr
		}
		return reportedError{err}
	}
	fmt.Fprintf(c.errOut, "task is invalid: %d violation(s)\n", len(failure.Violations))
	tw := table.NewWriter()
	tw.SetOutputMirror(c.errOut)
	tw.AppendHeader(table.Row{"Path", "Rule", "Message"})
	for _, v := range failure.Violations {
		tw.AppendRow(table.Row{v.Path.String(), v.Kind, v.Message})
	}
	tw.Render()
	return reportedError{err}
}

func newClient(cfg *config.Config) (*tasksdk.Client, error) {
	client := tasksdk.New(cfg.BaseURL())
	if cfg.Server.Timeout > 0 {
		client.Timeout = cfg.Server.Timeout
	}
	if cfg.Server.Certificate != "" {
		pool, err := tasksdk.LoadRootCAs(cfg.Server.Certificate)
		if err != nil {
			return nil, err
		}
		client.RootCAs = pool
	}
	return client, nil
}

func credentials(cfg *config.Config) tasksdk.Credentials {
	return tasksdk.Credentials{Username: cfg.Credentials.Username, Password: cfg.Credentials.Password}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTask(w io.Writer, t domain.Task) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Field", "Value"})
	tw.AppendRow(table.Row{"description", t.Description})
	tw.AppendRow(table.Row{"project", t.Project})
	tw.AppendRow(table.Row{"important", t.Important})
	tw.AppendRow(table.Row{"private", t.Private})
	tw.AppendRow(table.Row{"completed", t.Completed})
	tw.AppendRow(table.Row{"deadline", t.Deadline})
	for i, u := range t.Assignees {
		tw.AppendRow(table.Row{fmt.Sprintf("assignees[%d]", i), u.Email + nameSuffix(u.Name)})
	}
	tw.Render()
}

func nameSuffix(name string) string {
	if name == "" {
		return ""
	}
	return " (" + name + ")"
}
