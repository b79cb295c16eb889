// AngelaMos | 2026
// admin.go

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/repuestospro/backend/internal/auth"
	"github.com/repuestospro/backend/internal/core"
	"github.com/repuestospro/backend/internal/registration"
	"github.com/repuestospro/backend/internal/user"
)

type adminInput struct {
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=8,max=128"`
	Name     string `validate:"required,max=100"`
}

func newAdminCmd(a *app) *cobra.Command {
	var in adminInput

	create := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator account",
		Long: "Create an administrator account. The password is read from " +
			"ADMIN_PASSWORD when --password is not given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("ADMIN_PASSWORD")
			}
			if err := validator.New().Struct(in); err != nil {
				return errors.New(core.FormatValidationError(err))
			}

			db, err := a.database(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // process exits next

			hash, err := core.HashPassword(in.Password)
			if err != nil {
				return err
			}

			svc := user.NewService(user.NewRepository(db.DB), a.cfg.Loyalty.PointValueDecimal())
			info, err := svc.Create(cmd.Context(), auth.NewUser{
				Email:        in.Email,
				PasswordHash: hash,
				Name:         in.Name,
				Role:         user.RoleAdmin,
			})
			if errors.Is(err, core.ErrDuplicateKey) {
				return fmt.Errorf("a user with email %s already exists", in.Email)
			}
			if err != nil {
				return err
			}

			a.logger.Info("administrator created", "user_id", info.ID, "email", info.Email)
			return nil
		},
	}
	create.Flags().StringVar(&in.Email, "email", "", "administrator email")
	create.Flags().StringVar(&in.Password, "password", "", "administrator password")
	create.Flags().StringVar(&in.Name, "name", "Administrator", "display name")

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}
	cmd.AddCommand(create)

	return cmd
}

func newCodeCmd(a *app) *cobra.Command {
	var req registration.CreateCodeRequest

	create := &cobra.Command{
		Use:   "create",
		Short: "Issue a registration code for a staff role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Role = strings.TrimSpace(req.Role)
			if err := validator.New().Struct(req); err != nil {
				return errors.New(core.FormatValidationError(err))
			}

			db, err := a.database(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // process exits next

			svc := registration.NewService(registration.NewRepository(db.DB))
			code, err := svc.Create(cmd.Context(), "", req)
			if err != nil {
				return err
			}

			fmt.Printf("%s\t%s\texpires %s\n",
				code.Code, code.Role, code.ExpiresAt.Format("2006-01-02 15:04 MST"))
			return nil
		},
	}
	create.Flags().StringVar(&req.Role, "role", "", "store_manager, delivery or admin")
	create.Flags().StringVar(&req.Email, "email", "", "restrict the code to this email")
	create.Flags().IntVar(&req.ExpiresInHours, "hours", 0, "hours until the code expires")

	cmd := &cobra.Command{
		Use:   "registration-code",
		Short: "Manage staff registration codes",
	}
	cmd.AddCommand(create)

	return cmd
}
