package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mayondo/mwf/cmd/mwfctl/cli"
	"github.com/mayondo/mwf/internal/app"
	"github.com/mayondo/mwf/internal/platform/db"
	"github.com/mayondo/mwf/internal/shared"
	"github.com/mayondo/mwf/internal/users"
)

const usage = `usage: mwfctl <command> [flags]

commands:
  create-user   create an account (--username --password --role [--email] [--json])
  trigger-job   enqueue a background job (--name inventory:low_stock_scan|dashboard:warmup|maintenance:idempotency_cleanup)
  queue-stats   print the default queue counters as JSON
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	switch os.Args[1] {
	case "create-user":
		os.Exit(createUser(ctx, cfg, os.Args[2:]))
	case "trigger-job":
		os.Exit(triggerJob(ctx, cfg, os.Args[2:]))
	case "queue-stats":
		os.Exit(queueStats(cfg))
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func createUser(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	username := fs.String("username", "", "Required: login name")
	email := fs.String("email", "", "Optional: email address")
	password := fs.String("password", "", "Required: at least 8 characters")
	role := fs.String("role", shared.RoleEmployee, "Manager or Employee")
	asJSON := fs.Bool("json", false, "Print the created user as JSON")
	_ = fs.Parse(args)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect database: %v\n", err)
		return 1
	}
	defer pool.Close()

	service := users.NewService(users.NewRepository(pool), shared.NewAuditLogger(pool))
	return cli.CreateUserCommand(ctx, service, cli.CreateUserOptions{
		Username:   *username,
		Email:      *email,
		Password:   *password,
		Role:       *role,
		JSONOutput: *asJSON,
	})
}

func triggerJob(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("trigger-job", flag.ExitOnError)
	name := fs.String("name", "", "Required: task type to enqueue")
	_ = fs.Parse(args)

	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer jobsCLI.Close()

	info, err := jobsCLI.Trigger(ctx, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trigger-job: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stdout, "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
	return 0
}

func queueStats(cfg *app.Config) int {
	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer jobsCLI.Close()

	stats, err := jobsCLI.InspectQueue()
	if err != nil {
		fmt.Fprintf(os.Stderr, "queue-stats: %v\n", err)
		return 1
	}
	if err := json.NewEncoder(os.Stdout).Encode(stats); err != nil {
		fmt.Fprintf(os.Stderr, "queue-stats: %v\n", err)
		return 1
	}
	return 0
}
