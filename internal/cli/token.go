package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	jwttoken "regulus/internal/jwt_token"
)

// newTokenCmd mints session tokens for local runs. Production sessions are
// issued by the identity provider with the same key and issuer.
func newTokenCmd(opts *options) *cobra.Command {
	var (
		actor string
		role  string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a session token for local use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.cfg.IsProduction() {
				return errors.New("token minting is disabled in production")
			}
			svc := jwttoken.NewJWTService(opts.cfg.Session.SigningKey, opts.cfg.Session.Issuer)
			token, err := svc.GenerateSessionToken(actor, role, "sess_"+uuid.NewString(), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "Actor id (token subject)")
	cmd.Flags().StringVar(&role, "role", "", "Actor role")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
