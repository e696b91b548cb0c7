package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/container"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/service"
	"github.com/spf13/cobra"
)

// withContainer 组装容器后执行 fn,结束时释放连接
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, ctr *container.Container) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctr, err := container.NewContainer(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer ctr.Close()
	return fn(cmd.Context(), ctr)
}

var ministryCmd = &cobra.Command{
	Use:   "ministry",
	Short: "Manage the ministry directory",
}

var ministryAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Add a ministry to the directory",
	Example: `  ministry-exchange ministry add --name "Ministry of Finance" --abbreviation MOF`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		abbreviation, _ := cmd.Flags().GetString("abbreviation")

		return withContainer(cmd, func(ctx context.Context, ctr *container.Container) error {
			m, err := ctr.Ministries().Provision(ctx, service.MinistryInput{Name: name, Abbreviation: abbreviation})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", m.ID, m.Abbreviation, m.Name)
			return nil
		})
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Add a user to a ministry",
	Example: `  ministry-exchange user add --ministry <id> --email ops@mof.gov --password '...' --role admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ministryID, _ := cmd.Flags().GetString("ministry")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		role, _ := cmd.Flags().GetString("role")

		parsedRole, err := model.ParseRole(role)
		if err != nil {
			return err
		}

		return withContainer(cmd, func(ctx context.Context, ctr *container.Container) error {
			u, err := ctr.Users().Provision(ctx, service.UserInput{
				MinistryID: ministryID,
				Email:      email,
				Password:   password,
				Role:       parsedRole,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", u.ID, u.Email, u.Role)
			return nil
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Session token utilities",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a session token for a user (local testing)",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		return withContainer(cmd, func(ctx context.Context, ctr *container.Container) error {
			token, err := ctr.Resolver().IssueToken(userID, ttl)
			if err != nil {
				return err
			}
			// 确认令牌对应的用户存在
			if _, err := ctr.Resolver().Resolve(ctx, token); err != nil {
				return fmt.Errorf("user %q: %w", userID, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		})
	},
}

func init() {
	ministryAddCmd.Flags().String("name", "", "Ministry name")
	ministryAddCmd.Flags().String("abbreviation", "", "Unique abbreviation")
	_ = ministryAddCmd.MarkFlagRequired("name")
	_ = ministryAddCmd.MarkFlagRequired("abbreviation")
	ministryCmd.AddCommand(ministryAddCmd)

	userAddCmd.Flags().String("ministry", "", "Ministry ID")
	userAddCmd.Flags().String("email", "", "Email address")
	userAddCmd.Flags().String("password", "", "Initial password")
	userAddCmd.Flags().String("role", string(model.RoleUser), "Role: user, admin or super_admin")
	_ = userAddCmd.MarkFlagRequired("ministry")
	_ = userAddCmd.MarkFlagRequired("email")
	_ = userAddCmd.MarkFlagRequired("password")
	userCmd.AddCommand(userAddCmd)

	tokenIssueCmd.Flags().String("user", "", "User ID")
	tokenIssueCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	_ = tokenIssueCmd.MarkFlagRequired("user")
	tokenCmd.AddCommand(tokenIssueCmd)

	rootCmd.AddCommand(ministryCmd, userCmd, tokenCmd)
}
