package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"topic-catalog/internal/auth"
	apphttp "topic-catalog/internal/http"
	"topic-catalog/internal/service"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) tokenIssuer() (*auth.Issuer, error) {
	secret := a.cfg.Auth.JWTSecret
	if strings.TrimSpace(secret) == "" {
		var err error
		if secret, err = auth.RandomSecret(); err != nil {
			return nil, err
		}
		a.logger.Warn("auth jwt secret is not set; using an ephemeral secret, tokens will not survive a restart")
	}
	return auth.NewIssuer(secret, a.cfg.Auth.TokenTTL)
}

func (a *app) serve(ctx context.Context) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	tokens, err := a.tokenIssuer()
	if err != nil {
		return err
	}

	userService := service.NewUserService(store.Users, service.PasswordCost)
	topicService := service.NewTopicService(store.Topics, store.Users)

	panics := a.logger.WriterLevel(logrus.ErrorLevel)
	defer panics.Close()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.RecoveryWithWriter(panics))
	handler := apphttp.NewHandler(apphttp.Config{
		Users:  userService,
		Topics: topicService,
		Tokens: tokens,
		Store:  store,
		Logger: a.logger,
		Limit: apphttp.RateLimit{
			PerMinute: a.cfg.RateLimit.PerMinute,
			Burst:     a.cfg.RateLimit.Burst,
		},
		TrustedProxies: a.cfg.Server.TrustedProxies,
	})
	if err := handler.RegisterRoutes(router); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           apphttp.WithCORS(router, a.cfg.CORS.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	a.logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warnf("http shutdown: %v", err)
	}

	a.logger.Info("bye")
	return nil
}
