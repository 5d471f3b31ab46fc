package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"puntoventa/terminal/internal/cart"
	"puntoventa/terminal/internal/catalog"
	"puntoventa/terminal/internal/checkout"
	"puntoventa/terminal/internal/config"
	"puntoventa/terminal/internal/domain"
	"puntoventa/terminal/internal/gateway"
	"puntoventa/terminal/internal/logger"
	"puntoventa/terminal/internal/panel"
	"puntoventa/terminal/internal/session"
)

func main() {
	recoverUser := flag.String("recover", "", "run the password-recovery flow for the given username and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuración inválida: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: "pos-terminal",
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Output:      os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	closers := make([]func() error, 0, 1)
	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Error().Err(err).Msg("close error")
			}
		}
	}()

	var store session.Store = session.NewMemoryStore()
	if cfg.RedisAddr != "" {
		redisStore := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisStore.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("redis no disponible, usando sesión en memoria")
		} else {
			store = redisStore
			closers = append(closers, redisStore.Close)
			log.Info().Msg("sesión: redis")
		}
	} else {
		log.Info().Msg("sesión: memoria")
	}

	gw := gateway.New(cfg.APIBaseURL, cfg.RequestTimeout, storeTokens{store: store}, log)

	if *recoverUser != "" {
		result, err := gw.RecoverPassword(ctx, *recoverUser)
		if err != nil {
			if errors.Is(err, gateway.ErrUnavailable) {
				fmt.Fprintln(os.Stderr, "No se pudo conectar al servidor")
			} else {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			os.Exit(1)
		}
		fmt.Println(result.Message)
		if !result.Success {
			os.Exit(1)
		}
		return
	}

	if cfg.SessionToken != "" {
		sess := sessionFromConfig(cfg)
		if err := store.Save(ctx, sess); err != nil {
			log.Error().Err(err).Msg("no se pudo guardar la sesión")
			os.Exit(1)
		}
	}

	guard := session.NewGuard(store, cfg.SessionRole, log)
	cat := catalog.NewStore(gw, log)
	crt := cart.New(cat)
	flow := checkout.NewWorkflow(crt, cat, gw, log)
	p := panel.New(guard, cat, crt, flow, log, os.Stdout)

	if err := p.Run(ctx, os.Stdin); err != nil {
		switch {
		case errors.Is(err, session.ErrNotAuthorized), errors.Is(err, session.ErrExpired), errors.Is(err, panel.ErrSessionInvalid):
			fmt.Fprintln(os.Stderr, "Sesión inválida o expirada. Vuelva a iniciar sesión.")
		default:
			log.Error().Err(err).Msg("panel terminado con error")
		}
		os.Exit(1)
	}
}

func sessionFromConfig(cfg config.Config) domain.Session {
	return domain.Session{
		Token:  cfg.SessionToken,
		UserID: cfg.SessionUserID,
		User:   domain.User{ID: cfg.SessionUserID, Role: cfg.SessionRole},
	}
}

type storeTokens struct {
	store session.Store
}

func (s storeTokens) Token(ctx context.Context) (string, error) {
	sess, ok, err := s.store.Load(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return sess.Token, nil
}
