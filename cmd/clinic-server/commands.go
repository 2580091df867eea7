package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/validation"
)

// withPool loads configuration, opens a pool for the duration of fn and
// closes it afterwards.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func migrationsDir(cmd *cobra.Command, cfg *config.Config) string {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir
	}
	return cfg.MigrationsDir
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				count, err := db.NewMigrator(pool, migrationsDir(cmd, cfg)).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				statuses, err := db.NewMigrator(pool, migrationsDir(cmd, cfg)).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var in identity.RegisterInput
	var role string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account, typically the first secretary",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Role = auth.Role(role)
			if err := validation.New().Validate(&in); err != nil {
				return err
			}
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				svc := identity.NewService(identity.NewRepositoriesPG(pool), db.NewTxManager(pool), cfg.BcryptCost)
				res, err := svc.RegisterUser(ctx, in)
				if err != nil {
					return err
				}
				fmt.Printf("Created %s user %d (%s) with profile id %d.\n", res.User.Role, res.User.ID, res.User.Email, res.ProfileID)
				return nil
			})
		},
	}
	f := createCmd.Flags()
	f.StringVar(&in.Email, "email", "", "Login email")
	f.StringVar(&in.Password, "password", "", "Initial password (min 8 characters)")
	f.StringVar(&in.FirstName, "first-name", "", "First name")
	f.StringVar(&in.LastName, "last-name", "", "Last name")
	f.StringVar(&in.NationalID, "national-id", "", "National identity number")
	f.StringVar(&role, "role", string(auth.RoleSecretary), "Role: doctor, secretary or patient")
	f.StringVar(&in.Specialty, "specialty", "", "Doctor specialty")
	f.Int64Var(&in.ClinicID, "clinic-id", 0, "Doctor clinic id")
	f.StringVar(&in.DateOfBirth, "date-of-birth", "", "Patient date of birth (YYYY-MM-DD)")
	for _, name := range []string{"email", "password", "first-name", "last-name", "national-id"} {
		_ = createCmd.MarkFlagRequired(name)
	}

	cmd.AddCommand(createCmd)
	return cmd
}
