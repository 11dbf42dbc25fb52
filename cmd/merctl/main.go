package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thusa/managed-reports/internal/auth"
	"github.com/thusa/managed-reports/internal/config"
	"github.com/thusa/managed-reports/internal/domain"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "merctl",
		Short:        "Operator tooling for the managed reports API",
		SilenceUsage: true,
	}
	root.AddCommand(newHashPasswordCmd(), newIssueTokenCmd(), newVerifyTokenCmd())
	return root
}

func newHashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash suitable for the users.password column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0], cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 12, "bcrypt cost")
	return cmd
}

func newIssueTokenCmd() *cobra.Command {
	var (
		email  string
		role   string
		secret string
		issuer string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Mint a signed token for an account without a login round trip",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			parsed, ok := domain.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			tokens, err := auth.NewTokenManager(secret)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(auth.NewClaims(email, issuer, parsed, tokens.Now(), auth.WithLifetime(ttl)))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "token subject")
	cmd.Flags().StringVar(&role, "role", domain.RoleCustomer.String(), "Customer | Admin | System Admin")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "signing secret (env JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", config.DefaultIssuer, "token issuer")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultLifetime, "token lifetime")
	return cmd
}

func newVerifyTokenCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "verify-token <token>",
		Short: "Validate a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := auth.NewTokenManager(secret)
			if err != nil {
				return err
			}
			claims, err := tokens.Validate(auth.BearerToken(args[0]))
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(map[string]any{
				"sub":  claims.Subject,
				"iss":  claims.Issuer,
				"iat":  claims.IssuedAt.Unix(),
				"exp":  claims.ExpiresAt.Unix(),
				"role": claims.Role.String(),
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "signing secret (env JWT_SECRET)")
	return cmd
}
