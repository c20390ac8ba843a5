package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/codeloom/codeloom/internal/auth"
)

// NewTokenCommand returns the token subcommand. It mints a bearer token for
// local development so curl and websocket clients can authenticate without
// going through the login endpoint.
func NewTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a development bearer token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Usage:    "Identity to embed in the token",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Token lifetime",
				Value: 24 * time.Hour,
			},
		},
		Action: runToken,
	}
}

func runToken(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	token, err := auth.IssueToken(cfg.Auth.Secret, cmd.String("email"), cmd.Duration("ttl"))
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Println(token)
	return nil
}
