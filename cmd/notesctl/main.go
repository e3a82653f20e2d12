// Command notesctl is the operator tool: schema migration and user role
// administration against the configured database.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/gipity/gipity-scaffold/internal/cache"
	"github.com/gipity/gipity-scaffold/internal/config"
	"github.com/gipity/gipity-scaffold/internal/db"
	"github.com/gipity/gipity-scaffold/internal/logger"
	"github.com/gipity/gipity-scaffold/internal/model"
	"github.com/gipity/gipity-scaffold/internal/repository"
	"github.com/gipity/gipity-scaffold/internal/service"
)

var (
	rootCmd = &cobra.Command{
		Use:           "notesctl",
		Short:         "Administrative commands for the notes backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		Args:  cobra.NoArgs,
		RunE:  cmdMigrate,
	}

	usersCmd = &cobra.Command{
		Use:   "users",
		Short: "Inspect and manage users",
	}

	usersListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE:  cmdUsersList,
	}

	usersSetRoleCmd = &cobra.Command{
		Use:   "set-role <email> <user|admin>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE:  cmdUsersSetRole,
	}
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersSetRoleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// backend is the database plus the user cache the server reads through.
// Role changes must evict from the same cache or the server keeps serving
// the old role until the entry expires.
type backend struct {
	db    *gorm.DB
	cache *cache.Client
	ttl   time.Duration
}

func openBackend() (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	return &backend{
		db:    gdb,
		cache: cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, log),
		ttl:   cfg.UserCacheTTL,
	}, nil
}

func (b *backend) users() service.UserService {
	repo := repository.NewUserRepository(b.db, db.DetectSchema(b.db))
	return service.NewUserService(repo, b.cache, b.ttl)
}

func (b *backend) Close() {
	b.cache.Close()
	if sqlDB, err := b.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func cmdMigrate(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()
	if err := db.Migrate(b.db); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}

func cmdUsersList(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()
	users, err := b.users().ListUsers(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tROLE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Role, u.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func cmdUsersSetRole(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()
	user, err := b.users().SetRole(cmd.Context(), args[0], model.Role(args[1]))
	if err != nil {
		return fmt.Errorf("set role for %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
	return nil
}
