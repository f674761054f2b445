package main

import (
	"fmt"

	safar "github.com/Skyrin/go-safar"
	"github.com/Skyrin/go-safar/migration"
	"github.com/Skyrin/go-safar/progress"
	"github.com/Skyrin/go-safar/remote"
	"github.com/Skyrin/go-safar/sql"
	"github.com/Skyrin/go-safar/store"
	"github.com/Skyrin/go-safar/sync"
	syncmodel "github.com/Skyrin/go-safar/sync/model"
	"github.com/Skyrin/go-safar/wordprogress"
	"github.com/spf13/cobra"
)

var (
	userID    string
	drainKind string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	Long: `Apply the pending migrations of the on-device key-value store and, when a
remote database is configured, of the remote progress tables. The telemetry
topic is created when Kafka is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.close()

		if err := migrate(cmd, s.localDB, store.GetMigrationList()); err != nil {
			return err
		}
		if s.remoteDB != nil {
			if err := migrate(cmd, s.remoteDB, remote.GetMigrationList()); err != nil {
				return err
			}
		}

		return s.createTelemetryTopic(ctx, cfg.KafkaTopic)
	},
}

func migrate(cmd *cobra.Command, db *sql.Connection, ml *migration.List) error {
	m, err := migration.NewMigrator(cmd.Context(), db)
	if err != nil {
		return err
	}
	if err := m.AddMigrationList(cmd.Context(), ml); err != nil {
		return err
	}
	if err := m.Upgrade(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "migrated %s (%s)\n", ml.Code(), db.Driver())
	return nil
}

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Replay a user's queued progress to the remote database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.close()

		switch syncmodel.Kind(drainKind) {
		case "", syncmodel.KindLessonComplete, syncmodel.KindWordProgress:
		default:
			return fmt.Errorf("unknown kind: %s", drainKind)
		}

		if err := s.requireRemote(); err != nil {
			return err
		}

		queue := sync.NewManager(s.local)
		out := cmd.OutOrStdout()

		if drainKind == "" || drainKind == string(syncmodel.KindLessonComplete) {
			pf := progress.New(progress.Config{
				Remote:   s.remote,
				Local:    s.local,
				Queue:    queue,
				Reporter: s.reporter,
			})
			res := pf.SyncOfflineProgress(ctx, userID)
			fmt.Fprintf(out, "%s: %d synced, %d failed\n",
				syncmodel.KindLessonComplete, res.Synced, res.Failed)
		}

		if drainKind == "" || drainKind == string(syncmodel.KindWordProgress) {
			wf := wordprogress.New(wordprogress.Config{
				Remote: s.remote,
				Local:  s.local,
				Queue:  queue,
			})
			res := wf.SyncWordProgress(ctx, userID)
			fmt.Fprintf(out, "%s: %d synced, %d failed\n",
				syncmodel.KindWordProgress, res.Synced, res.Failed)
		}

		return nil
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List a user's queued progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.close()

		qList, err := sync.NewManager(s.local).Pending(ctx, userID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, qi := range qList {
			fmt.Fprintf(out, "%s\t%s\t%s\n", qi.CreatedAt, qi.Type, qi.Payload)
		}
		fmt.Fprintf(out, "%d pending\n", len(qList))

		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		sha, build := safar.Version()
		fmt.Fprintf(cmd.OutOrStdout(), "safar-sync %s (build %s)\n", sha, build)
	},
}

func init() {
	for _, c := range []*cobra.Command{drainCmd, pendingCmd} {
		c.Flags().StringVar(&userID, "user", "", "user id")
		_ = c.MarkFlagRequired("user")
	}
	drainCmd.Flags().StringVar(&drainKind, "kind", "",
		"only drain this kind (lesson_complete or word_progress)")
}
