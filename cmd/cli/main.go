package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/authprovider"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/logger"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/store"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	driver string
	dsn    string
	log    *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "printease",
		Short:         "Staff tools for the PrintEase order database",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New("development", getEnv("LOG_LEVEL", "warn"))
			if err != nil {
				return err
			}
			opts.log = log
			return nil
		},
	}
	root.SetOut(out)

	// .env is optional; flags still fall back to the built-in defaults.
	_ = godotenv.Load()
	root.PersistentFlags().StringVar(&opts.driver, "db-driver", getEnv("DB_DRIVER", store.DriverSQLite), "database driver (sqlite or postgres)")
	root.PersistentFlags().StringVar(&opts.dsn, "db-dsn", getEnv("DB_DSN", "./printease.db"), "database connection string")

	root.AddCommand(
		newCreateAccountCmd(opts),
		newListOrdersCmd(opts),
		newSetStatusCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}

// open connects and brings the schema up to date so the CLI can run before
// the server ever has.
func (o *options) open() (*store.Store, error) {
	db, err := store.NewStore(o.driver, o.dsn, o.log)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func newCreateAccountCmd(opts *options) *cobra.Command {
	var email, password, fullName string
	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Create a customer account with an empty profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.open()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			provider := authprovider.NewLocal(db, authprovider.Options{Secret: []byte("cli")}, opts.log)
			id, _, err := provider.CreateIdentity(ctx, email, password)
			if err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}
			if err := db.SetProfile(ctx, id.UID, &models.UserProfile{FullName: fullName, PersonalEmail: id.Email}); err != nil {
				return fmt.Errorf("account %s created but profile write failed: %w", id.UID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account '%s' created successfully (uid %s).\n", id.Email, id.UID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address of the new account")
	cmd.Flags().StringVar(&password, "password", "", "password for the new account")
	cmd.Flags().StringVar(&fullName, "name", "", "full name shown on the profile")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newListOrdersCmd(opts *options) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "list-orders",
		Short: "List orders, optionally for one customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.open()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			var orders []models.Order
			if owner != "" {
				orders, err = db.OrdersByOwner(ctx, owner)
			} else {
				orders, err = db.AllOrders(ctx)
			}
			if err != nil {
				return err
			}
			if len(orders) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No orders found.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tCREATED\tOWNER\tFILES\tPAGES\tTOTAL\tPAYMENT\tSTATUS")
			for _, o := range orders {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
					o.ID, o.CreatedAt.Format("2006-01-02 15:04"), o.UserID, len(o.Files), o.Pages(), o.TotalCost, o.PaymentMethod, o.Status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only orders placed by this email")
	return cmd
}

func newSetStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <order-key> <status>",
		Short: "Move an order to pending, Processing or Completed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.open()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.UpdateOrderStatus(context.Background(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order %s is now %s.\n", args[0], args[1])
			return nil
		},
	}
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.open()
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
			return nil
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
