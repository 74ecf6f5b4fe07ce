// Command campusauth signs a user in to the college data service from the
// terminal. `login` prefers the saved refresh token and falls back to the
// browser flow, `whoami` reports the signed-in user from saved credentials,
// and `logout` discards them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"campusauth/internal/credentials"
	"campusauth/internal/login"
	"campusauth/internal/oauth"
	"campusauth/internal/platform/config"
	"campusauth/internal/platform/logger"
	"campusauth/internal/platform/metrics"
	platformredis "campusauth/internal/platform/redis"
	"campusauth/internal/session"
)

const usage = `usage: campusauth <command>

commands:
  login    sign in, preferring saved credentials over the browser flow
  whoami   show the signed-in user from saved credentials
  logout   discard saved credentials
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "campusauth:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("missing command")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	keys, err := config.LoadKeys(cfg.KeysFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	s := session.New(cfg, keys, store, log, metrics.New())

	switch cmd := args[0]; cmd {
	case "login":
		fresh := flag.NewFlagSet("login", flag.ExitOnError)
		forceInteractive := fresh.Bool("fresh", false, "ignore saved credentials and run the browser flow")
		if err := fresh.Parse(args[1:]); err != nil {
			return err
		}
		return runLogin(ctx, s, *forceInteractive)
	case "whoami":
		return runWhoami(ctx, s)
	case "logout":
		return s.Logout(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// newStore picks the credential backend: Redis when configured, otherwise a
// JSON file under the user's config directory.
func newStore(ctx context.Context, cfg config.Config) (credentials.Store, func(), error) {
	scope := credentials.Scope{ServiceName: cfg.ServiceName, AccessGroup: cfg.AccessGroup}

	if cfg.RedisURL != "" {
		client, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return credentials.NewRedisStore(scope, client.Client), func() { _ = client.Close() }, nil
	}

	path := cfg.CredentialsFile
	if path == "" {
		var err error
		path, err = credentials.DefaultPath()
		if err != nil {
			return nil, nil, err
		}
	}
	return credentials.NewFileStore(scope, path), func() {}, nil
}

func runLogin(ctx context.Context, s *session.Session, forceInteractive bool) error {
	var user login.User
	var err error

	if forceInteractive {
		user, err = s.LoginInteractive(ctx)
	} else {
		user, err = s.LoginSaved(ctx)
		if errors.Is(err, oauth.ErrNoSavedDetails) {
			user, err = s.LoginInteractive(ctx)
		}
	}
	if err != nil {
		return err
	}

	details := user.Details()
	fmt.Printf("Signed in as %s (%s)\n", details.FullName(), details.Username)
	return nil
}

func runWhoami(ctx context.Context, s *session.Session) error {
	user, err := s.LoginSaved(ctx)
	if errors.Is(err, oauth.ErrNoSavedDetails) {
		return errors.New("not signed in; run `campusauth login`")
	}
	if err != nil {
		return err
	}

	details := user.Details()
	fmt.Printf("%s\nUsername: %s\nEmail:    %s\nID:       %d\n",
		details.FullName(), details.Username, details.Email, details.ID)
	return nil
}
