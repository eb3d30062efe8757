package main

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"dealflow/internal/auth"
)

var (
	tokenSubject string
	tokenRole    string
	tokenIssuer  string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue API bearer tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign a bearer token with DEALFLOW_JWT_SECRET",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv("DEALFLOW_JWT_SECRET")
		if secret == "" {
			return errors.New("DEALFLOW_JWT_SECRET is not set")
		}
		role, ok := auth.ParseRole(tokenRole)
		if !ok {
			return errors.New("--role must be reader or operator")
		}
		j := auth.JWT{Secret: []byte(secret), Issuer: tokenIssuer, TokenTTL: tokenTTL}
		tok, exp, err := j.Sign(auth.Claims{
			Role:             role,
			RegisteredClaims: jwt.RegisteredClaims{Subject: tokenSubject},
		})
		if err != nil {
			return err
		}
		return Write(os.Stdout, Format(outputFormat), map[string]any{
			"token":      tok,
			"role":       role,
			"subject":    tokenSubject,
			"expires_at": exp.Format(time.RFC3339),
		})
	},
}

func init() {
	tokenIssueCmd.Flags().StringVar(&tokenSubject, "subject", "", "token subject, e.g. an analyst name")
	tokenIssueCmd.Flags().StringVar(&tokenRole, "role", string(auth.RoleReader), "reader or operator")
	tokenIssueCmd.Flags().StringVar(&tokenIssuer, "issuer", "dealflow", "issuer; must match the server auth.issuer")
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", 720*time.Hour, "token lifetime")
	tokenCmd.AddCommand(tokenIssueCmd)
}
