package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"saiblibrary/internal/models"
	"saiblibrary/internal/repositories"
	"saiblibrary/internal/services"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB(a.db)
			a.log.Info("schema up to date", "driver", a.cfg.Database.Driver)
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute available copies from the borrowing ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB(a.db)

			borrowings := services.NewBorrowingService(a.db, repositories.New(a.db), a.opts)
			drift, err := borrowings.ReconcileCounters(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range drift {
				fmt.Fprintf(out, "%s  %-40s total=%d open=%d available %d -> %d\n",
					d.BookID, d.Title, d.Total, d.Open, d.Was, d.Corrected)
			}
			fmt.Fprintf(out, "%d book(s) corrected\n", len(drift))
			return nil
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for seeding accounts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				p, err := newPasswordReader(cmd).read("Password: ")
				if err != nil {
					return err
				}
				password = p
			}
			hash, err := services.HashPassword(password, cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func createSuperAdminCmd() *cobra.Command {
	var in struct {
		first, last, email string
	}
	cmd := &cobra.Command{
		Use:   "create-superadmin",
		Short: "Create a super admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pr := newPasswordReader(cmd)
			password, err := pr.read("Password: ")
			if err != nil {
				return err
			}
			confirm, err := pr.read("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}

			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB(a.db)

			admins := services.NewAdminService(a.db, repositories.New(a.db), a.opts)
			staff, err := admins.Create(cmd.Context(), services.StaffInput{
				Role:      models.RoleSuperAdmin,
				FirstName: &in.first,
				LastName:  &in.last,
				Email:     &in.email,
				Password:  &password,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created super admin %s (%s)\n", staff.Email, staff.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.first, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.last, "last-name", "", "last name")
	cmd.Flags().StringVar(&in.email, "email", "", "login email")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// passwordReader masks input on a terminal and falls back to plain line reads
// when stdin is piped.
type passwordReader struct {
	fd    int
	piped *bufio.Reader
}

func newPasswordReader(cmd *cobra.Command) *passwordReader {
	pr := &passwordReader{fd: int(syscall.Stdin)}
	if !term.IsTerminal(pr.fd) {
		pr.piped = bufio.NewReader(cmd.InOrStdin())
	}
	return pr
}

func (pr *passwordReader) read(prompt string) (string, error) {
	if pr.piped != nil {
		line, err := pr.piped.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(line), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(pr.fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
