package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"taskline/internal/app"
	"taskline/internal/config"
	"taskline/internal/db"
	"taskline/internal/engine"
	"taskline/internal/migrate"
	"taskline/internal/server"
)

func (c *cli) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <task-file>",
		Short: "Validate a task file without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: c.runE(func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(c.v)
			if err != nil {
				return err
			}
			pipeline, err := app.NewPipeline(cfg.Schema)
			if err != nil {
				return err
			}
			task, err := pipeline.LoadTask(args[0])
			if err != nil {
				return c.reportViolations(err)
			}
			if c.v.GetBool("json") {
				return printJSON(c.out, map[string]any{"valid": true, "task": task})
			}
			fmt.Fprintln(c.out, "task is valid")
			printTask(c.out, task)
			return nil
		}),
	}
}

func (c *cli) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the effective task schema",
		Args:  cobra.NoArgs,
		RunE: c.runE(func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(c.v)
			if err != nil {
				return err
			}
			pipeline, err := app.NewPipeline(cfg.Schema)
			if err != nil {
				return err
			}
			src := pipeline.Schema.Source()
			if _, err := c.out.Write(src); err != nil {
				return err
			}
			if len(src) > 0 && src[len(src)-1] != '\n' {
				fmt.Fprintln(c.out)
			}
			return nil
		}),
	}
}

func (c *cli) configCmd() *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Manage taskctl.yml"}
	cfgCmd.AddCommand(c.configInitCmd())
	cfgCmd.AddCommand(c.configShowCmd())
	return cfgCmd
}

func (c *cli) configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: c.runE(func(cmd *cobra.Command, args []string) error {
			path := c.v.GetString("config")
			if path == "" {
				path = config.Path("")
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config %s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "wrote %s\n", path)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func (c *cli) configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config with secrets masked",
		Args:  cobra.NoArgs,
		RunE: c.runE(func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(c.v)
			if err != nil {
				return err
			}
			masked := *cfg
			if masked.Credentials.Password != "" {
				masked.Credentials.Password = "********"
			}
			if masked.Service.JWTSecret != "" {
				masked.Service.JWTSecret = "********"
			}
			masked.Service.Users = nil
			for _, u := range cfg.Service.Users {
				u.Password = "********"
				masked.Service.Users = append(masked.Service.Users, u)
			}
			if c.v.GetBool("json") {
				return printJSON(c.out, masked)
			}
			enc := yaml.NewEncoder(c.out)
			enc.SetIndent(2)
			if err := enc.Encode(masked); err != nil {
				return err
			}
			return enc.Close()
		}),
	}
}

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a TaskService for local development and tests",
		Args:  cobra.NoArgs,
		RunE: c.runE(func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(c.v)
			if err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Path: cfg.Service.DB})
			if err != nil {
				return err
			}
			defer conn.Close()
			logger := c.serviceLogger()
			applied, err := migrate.Migrate(cmd.Context(), conn)
			if err != nil {
				return err
			}
			for _, name := range applied {
				logger.Printf("applied migration %s", name)
			}
			e := engine.New(conn)
			if err := e.SeedUsers(cmd.Context(), cfg.Service.Users); err != nil {
				return err
			}
			handler, err := server.New(server.Config{Engine: e, Logger: logger, JWTSecret: cfg.Service.JWTSecret})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Service.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			store := cfg.Service.DB
			if store == "" {
				store = "memory"
			}
			serveErr := make(chan error, 1)
			go func() {
				if cfg.Service.TLSCert != "" {
					fmt.Fprintf(c.out, "Serving TaskService on https://%s (store: %s, users: %d)\n", cfg.Service.Addr, store, len(cfg.Service.Users))
					serveErr <- srv.ListenAndServeTLS(cfg.Service.TLSCert, cfg.Service.TLSKey)
					return
				}
				logger.Printf("no TLS certificate configured; clients need --plaintext")
				fmt.Fprintf(c.out, "Serving TaskService on http://%s (store: %s, users: %d)\n", cfg.Service.Addr, store, len(cfg.Service.Users))
				serveErr <- srv.ListenAndServe()
			}()
			return waitAndShutdown(cmd.Context(), srv, serveErr, logger)
		}),
	}
	cmd.Flags().String("addr", "", "listen address (default from config, :8443)")
	cmd.Flags().String("db", "", "sqlite file; empty keeps tasks in memory")
	cmd.Flags().String("tls-cert", "", "PEM certificate")
	cmd.Flags().String("tls-key", "", "PEM private key")
	cmd.Flags().String("jwt-secret", "", "HS256 secret for browser sessions; empty generates one per run")
	cmd.Flags().StringArray("user", nil, "seed account as email:password[:name]; repeatable")
	_ = c.v.BindPFlag("service.addr", cmd.Flags().Lookup("addr"))
	_ = c.v.BindPFlag("service.db", cmd.Flags().Lookup("db"))
	_ = c.v.BindPFlag("service.tls_cert", cmd.Flags().Lookup("tls-cert"))
	_ = c.v.BindPFlag("service.tls_key", cmd.Flags().Lookup("tls-key"))
	_ = c.v.BindPFlag("service.jwt_secret", cmd.Flags().Lookup("jwt-secret"))
	_ = c.v.BindPFlag("service.users", cmd.Flags().Lookup("user"))
	return cmd
}

func (c *cli) serviceLogger() *log.Logger {
	return log.New(c.errOut, "taskctl serve: ", log.LstdFlags)
}

// waitAndShutdown blocks until the server stops on its own or ctx ends. In
// the second case the server is shut down gracefully.
func waitAndShutdown(ctx context.Context, srv *http.Server, serveErr <-chan error, logger *log.Logger) error {
	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
