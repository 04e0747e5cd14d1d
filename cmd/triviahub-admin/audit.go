package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/triviahub/th-auth-api/internal/bootstrap"
	"github.com/triviahub/th-auth-api/internal/data"
)

type auditTailOptions struct {
	Limit int
}

type auditPruneOptions struct {
	Retention time.Duration
	DryRun    bool
}

func runMigrate(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, "database", db)

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
	defer cancel()

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

func runAuditTail(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("audit-tail", flag.ContinueOnError)
	opts := auditTailOptions{}
	fs.IntVar(&opts.Limit, "limit", 50, "maximum number of entries to print")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, "database", db)

	repo := data.NewLoginAuditRepo(db)
	entries, err := repo.Tail(cmdCtx.Ctx, opts.Limit)
	if err != nil {
		return fmt.Errorf("tail audit log: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(tw, "TIME\tAUDIENCE\tEVENT\tIDENTIFIER\tERROR\tREMOTE\n"); err != nil {
		return err
	}
	for _, entry := range entries {
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.CreatedAt.Format(time.RFC3339),
			entry.Audience,
			entry.Event,
			entry.Identifier,
			entry.ErrorCode,
			entry.RemoteAddr,
		); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runAuditPrune(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("audit-prune", flag.ContinueOnError)
	opts := auditPruneOptions{}
	fs.DurationVar(&opts.Retention, "retention", 90*24*time.Hour, "keep entries newer than this")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "count matching entries without deleting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, "database", db)

	if opts.DryRun {
		var count int
		cutoff := time.Now().UTC().Add(-opts.Retention)
		row := db.QueryRowContext(cmdCtx.Ctx, "SELECT COUNT(*) FROM login_audit WHERE created_at < $1", cutoff)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("count prunable entries: %w", err)
		}
		cmdCtx.Logger.Info("audit prune dry run", "would_delete", count, "cutoff", cutoff)
		return nil
	}

	repo := data.NewLoginAuditRepo(db)
	deleted, err := repo.Prune(cmdCtx.Ctx, opts.Retention)
	if err != nil {
		return fmt.Errorf("prune audit log: %w", err)
	}
	cmdCtx.Logger.Info("audit entries pruned", "deleted", deleted, "retention", opts.Retention)
	return nil
}
