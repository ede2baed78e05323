package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hongminglow/anonboard/internal/apiclient"
	"github.com/hongminglow/anonboard/internal/config"
	"github.com/hongminglow/anonboard/internal/guard"
	"github.com/hongminglow/anonboard/internal/session"
	"github.com/hongminglow/anonboard/internal/tokenstore"
	"github.com/hongminglow/anonboard/internal/tokenstore/postgres"
)

const usage = `usage: anonboard <command> [flags]

commands:
  whoami                                  show the current session
  login -email E -password P              start a session
  signup -email E -password P [-avatar N] create an account (verification required)
  verify -email E -otp CODE               confirm an email address
  resend-otp -email E                     send a new verification code
  forgot-password -email E                request a password reset code
  reset-password -email E -otp CODE -password P
  logout                                  end the local session
  route PATH                              show where the route guard sends PATH
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, closeLog := newLogger(cfg)
	defer closeLog()

	ctx := context.Background()
	store, closeStore, err := openTokenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open token store: %v", err)
	}
	defer closeStore()

	creds := apiclient.NewCredentials()
	api := apiclient.New(cfg.APIURL, creds,
		apiclient.WithTimeout(cfg.HTTPTimeout),
		apiclient.WithLogger(logger),
	)
	manager := session.NewManager(api, creds, store, session.WithLogger(logger))
	defer manager.Close()

	manager.Initialize(ctx)

	if err := run(ctx, manager, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		report(err)
		closeStore()
		closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, manager *session.Manager, cmd string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("ANONBOARD_PASSWORD"), "account password")
	otp := fs.String("otp", "", "one-time code from the verification email")
	avatar := fs.String("avatar", "1", "avatar id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch cmd {
	case "whoami":
		printSession(out, manager.Snapshot())
		return nil
	case "login":
		if _, err := manager.Login(ctx, *email, *password); err != nil {
			return err
		}
		snap := manager.Snapshot()
		if snap.User == nil {
			return errors.New("logged in, but the identity could not be loaded; run whoami to retry")
		}
		printSession(out, snap)
		return nil
	case "signup":
		if _, err := manager.Register(ctx, *email, *password, *avatar); err != nil {
			return err
		}
		fmt.Fprintf(out, "account created; check your inbox and run: anonboard verify -email %s -otp CODE\n", *email)
		return nil
	case "verify":
		if err := manager.VerifyEmail(ctx, *email, *otp); err != nil {
			return err
		}
		fmt.Fprintln(out, "email verified; you can now log in")
		return nil
	case "resend-otp":
		if err := manager.ResendOTP(ctx, *email); err != nil {
			return err
		}
		fmt.Fprintln(out, "a new code is on its way")
		return nil
	case "forgot-password":
		if err := manager.ForgotPassword(ctx, *email); err != nil {
			return err
		}
		fmt.Fprintln(out, "if the account exists, a reset code has been sent")
		return nil
	case "reset-password":
		if err := manager.ResetPassword(ctx, *email, *otp, *password); err != nil {
			return err
		}
		fmt.Fprintln(out, "password updated; log in with the new password")
		return nil
	case "logout":
		if err := manager.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "logged out")
		return nil
	case "route":
		if fs.NArg() != 1 {
			return errors.New("route takes exactly one path")
		}
		router := guard.NewRouter(guard.DefaultRoutes())
		printDecision(out, fs.Arg(0), router.Resolve(fs.Arg(0), manager.State()))
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func printSession(out io.Writer, snap session.Snapshot) {
	fmt.Fprintf(out, "state: %s\n", snap.State())
	if snap.User == nil {
		return
	}
	fmt.Fprintf(out, "user:  %s (#%d, %s)\n", snap.User.AnonymousName, snap.User.ID, snap.User.Email)
	fmt.Fprintf(out, "admin: %t  premium: %t\n", snap.IsAdmin, snap.IsPremium)
	if !snap.TokenExpiresAt.IsZero() {
		fmt.Fprintf(out, "token expires %s\n", snap.TokenExpiresAt.Local().Format(time.RFC1123))
	}
}

func printDecision(out io.Writer, path string, d guard.Decision) {
	switch d.Outcome {
	case guard.Redirect:
		fmt.Fprintf(out, "%s -> redirect %s\n", path, d.RedirectTo)
	default:
		fmt.Fprintf(out, "%s -> %s\n", path, d.Outcome)
	}
}

func report(err error) {
	switch {
	case apiclient.IsBanned(err):
		fmt.Fprintf(os.Stderr, "account banned: %s\nyou have been logged out\n", apiclient.Message(err, "banned"))
	case errors.Is(err, apiclient.ErrTransport):
		fmt.Fprintf(os.Stderr, "cannot reach the server: %v\n", err)
	case errors.Is(err, flag.ErrHelp):
	default:
		fmt.Fprintf(os.Stderr, "error: %s\n", apiclient.Message(err, err.Error()))
	}
}

func newLogger(cfg config.Config) (*slog.Logger, func()) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.TrimSpace(cfg.LogFile) == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() {}
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
	return slog.New(slog.NewJSONHandler(rotator, opts)), func() { _ = rotator.Close() }
}

func openTokenStore(ctx context.Context, cfg config.Config) (tokenstore.Store, func(), error) {
	noop := func() {}
	switch cfg.TokenStore {
	case config.StoreMemory:
		return tokenstore.NewMemoryStore(), noop, nil
	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("ping redis: %w", err)
		}
		return tokenstore.NewRedisStore(client, "anonboard:"+cfg.Profile), func() { _ = client.Close() }, nil
	case config.StorePostgres:
		store, err := postgres.NewTokenStore(ctx, cfg.DatabaseURL, cfg.Profile)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	default:
		return tokenstore.NewFileStore(afero.NewOsFs(), cfg.TokenFile), noop, nil
	}
}

func loadLocalEnv() {
	_ = godotenv.Load()
}
