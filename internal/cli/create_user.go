package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"wellnessconnect/internal/models"
	"wellnessconnect/internal/service/account"
)

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create an account, typically the first Admin or Counsellor",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.log.Sync()

		db, err := e.openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		in := account.RegisterInput{}
		in.Email, _ = cmd.Flags().GetString("email")
		in.Name, _ = cmd.Flags().GetString("name")
		in.Password, _ = cmd.Flags().GetString("password")
		in.Anonymous, _ = cmd.Flags().GetBool("anonymous")
		role, _ := cmd.Flags().GetString("role")
		in.Role = models.Role(role)

		user, err := account.NewService(db).Register(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		e.log.Info("user created", "id", user.ID, "email", user.Email, "role", user.Role)
		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", user.ID)
		return nil
	},
}

func init() {
	f := createUserCmd.Flags()
	f.String("email", "", "Account email")
	f.String("name", "", "Display name")
	f.String("password", "", "Password, at least 6 characters")
	f.String("role", string(models.RoleAdmin), "Student, Counsellor or Admin")
	f.Bool("anonymous", false, "Hide the name of a Student on counsellor views")
	_ = createUserCmd.MarkFlagRequired("email")
	_ = createUserCmd.MarkFlagRequired("password")
	_ = createUserCmd.MarkFlagRequired("name")
}
