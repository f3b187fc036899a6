package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ignite/mail-dispatcher/internal/config"
	"github.com/ignite/mail-dispatcher/internal/contacts"
	"github.com/ignite/mail-dispatcher/internal/domain"
	"github.com/ignite/mail-dispatcher/internal/pkg/distlock"
	"github.com/ignite/mail-dispatcher/internal/pkg/logger"
	"github.com/ignite/mail-dispatcher/internal/progress"
	"github.com/ignite/mail-dispatcher/internal/repository/postgres"
	"github.com/ignite/mail-dispatcher/internal/sending"
	"github.com/ignite/mail-dispatcher/internal/storage"
	"github.com/ignite/mail-dispatcher/internal/worker"
)

var (
	contactsPath string
	dryRun       bool
	assumeYes    bool
)

var errAborted = errors.New("run aborted")

// lockTTL bounds how long a crashed run blocks the next one.
const lockTTL = time.Minute

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Send one email per contact",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDispatch(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	runCmd.Flags().StringVar(&contactsPath, "contacts", "", "contact CSV file (.csv is appended when missing)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log messages instead of sending them")
	runCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the settings review prompt")
	_ = runCmd.MarkFlagRequired("contacts")
}

func runDispatch(ctx context.Context, in io.Reader, out io.Writer) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if dryRun {
		s.Channel.Type = domain.ChannelLog
	}
	if err := s.Check(); err != nil {
		return fmt.Errorf("important settings are not completed: %w", err)
	}
	cfg, err := s.Configuration()
	if err != nil {
		return err
	}

	path := contacts.NormalizePath(contactsPath)
	if !assumeYes {
		if err := s.WriteReview(out, path); err != nil {
			return err
		}
		if !confirm(in, out) {
			return errAborted
		}
	}

	channel, err := sending.New(s.Channel.Type)
	if err != nil {
		return err
	}

	var (
		opts        []worker.Option
		redisClient *redis.Client
		db          *sql.DB
	)
	sinks := []progress.Sink{progress.NewConsole(out)}
	if s.Progress.RedisURL != "" {
		rs, err := progress.NewRedisSinkFromURL(ctx, s.Progress.RedisURL, s.Progress.KeyPrefix)
		if err != nil {
			return err
		}
		defer rs.Close()
		redisClient = rs.Client()
		sinks = append(sinks, rs)
	}
	opts = append(opts, worker.WithSinks(sinks...))

	switch s.History.Type {
	case config.HistoryPostgres:
		db, err = postgres.Open(ctx, s.History.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		repo := postgres.NewRunHistoryRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		opts = append(opts, worker.WithRecorder(repo))
	case config.HistoryDynamoDB:
		h, err := storage.NewDynamoRunHistoryFromConfig(ctx, s.History.DynamoDBTable, s.History.Region)
		if err != nil {
			return err
		}
		opts = append(opts, worker.WithRecorder(h))
	case config.HistoryNone:
	default:
		logger.Warn("unknown history type, run history disabled", "type", s.History.Type)
	}

	if s.Archive.S3Bucket != "" {
		archive, err := storage.NewLedgerArchiveFromConfig(ctx, s.Archive.S3Bucket, s.Archive.S3Prefix, s.Archive.Region)
		if err != nil {
			return err
		}
		opts = append(opts, worker.WithArchiver(archive))
	}

	if redisClient != nil || db != nil {
		key := lockKey(cfg, path)
		release, err := distlock.Guard(ctx, distlock.NewLock(redisClient, db, key, lockTTL), lockTTL)
		if err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
		defer release()
	}

	engine := worker.NewDispatchEngine(channel, s.Credentials(), opts...)
	_, err = engine.RunFile(ctx, cfg, path)
	return err
}

// lockKey names what a run writes: its ledger folder, or the contact file
// when nothing is segregated.
func lockKey(cfg *domain.Configuration, contactsFile string) string {
	target := contactsFile
	if cfg.SegregateByTemplate || cfg.SegregateBySender {
		target = cfg.OutputDirectory
	}
	if abs, err := filepath.Abs(target); err == nil {
		target = abs
	}
	return target
}

func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "\n   Are you sure you want to proceed? [y/N]: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
