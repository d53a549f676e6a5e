package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/postman-push/go-postman-api/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// config is read from the environment, after loading an optional .env file.
type config struct {
	VAPIDPublicKey  string        `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string        `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDSubscriber string        `envconfig:"VAPID_SUBSCRIBER" default:"postman@localhost"`
	JWTSecret       string        `envconfig:"JWT_SECRET"`
	AuthLife        time.Duration `envconfig:"AUTH_LIFE" default:"5m"`
	Workers         int           `envconfig:"DISPATCH_WORKERS" default:"4"`
	RatePerSec      int           `envconfig:"DISPATCH_RATE" default:"50"`
	MinAppVersion   string        `envconfig:"MIN_APP_VERSION"`
}

func main() {
	app := &cli.App{
		Name:  "postman-server",
		Usage: "Run a local push notification server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "port to listen on",
				Value:   8081,
			},
			&cli.BoolFlag{
				Name:  "tls",
				Usage: "serve over TLS with a self-signed certificate",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "file to load environment variables from",
				Value: ".env",
			},
			&cli.StringSliceFlag{
				Name:  "producer",
				Usage: "create a producer account, as username:password",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("Server failed")
	}
}

func run(c *cli.Context) error {
	if err := godotenv.Load(c.String("env-file")); err != nil {
		logrus.WithError(err).Debug("No env file loaded")
	}

	var cfg config

	if err := envconfig.Process("postman", &cfg); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	l, err := net.Listen("tcp", fmt.Sprintf(":%d", c.Int("port")))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	opts := []server.Option{
		server.WithListener(l),
		server.WithTLS(c.Bool("tls")),
		server.WithLogger(os.Stdout),
		server.WithAuthLife(cfg.AuthLife),
		server.WithDispatch(cfg.Workers, cfg.RatePerSec),
	}

	if cfg.VAPIDPublicKey != "" || cfg.VAPIDPrivateKey != "" {
		opts = append(opts, server.WithVAPIDKeys(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber))
	}

	if cfg.JWTSecret != "" {
		opts = append(opts, server.WithSigningKey([]byte(cfg.JWTSecret)))
	}

	if cfg.MinAppVersion != "" {
		version, err := semver.NewVersion(cfg.MinAppVersion)
		if err != nil {
			return fmt.Errorf("invalid minimum app version: %w", err)
		}

		opts = append(opts, server.WithMinAppVersion(version))
	}

	s := server.New(opts...)
	defer s.Close()

	for _, producer := range c.StringSlice("producer") {
		username, password, ok := strings.Cut(producer, ":")
		if !ok {
			return fmt.Errorf("invalid producer %q, want username:password", producer)
		}

		topicID, err := s.CreateProducer(username, []byte(password))
		if err != nil {
			return fmt.Errorf("failed to create producer %q: %w", username, err)
		}

		logrus.WithField("user", username).WithField("topic", topicID).Info("Producer created")
	}

	logrus.WithField("url", s.GetHostURL()).WithField("key", s.GetPublicKey()).Info("Server started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	<-sig

	logrus.Info("Server stopping")

	return nil
}
