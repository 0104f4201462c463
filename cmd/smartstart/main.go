package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"smartstart/internal/app"
	"smartstart/internal/config"
	"smartstart/internal/db"
	"smartstart/internal/repo"
	"smartstart/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "smartstart",
	Short: "Smart Start CLI",
	Long: `Smart Start tells students when to begin each assignment and tells parents how their
children are coping.
- Plan: score assignments by complexity, estimate effort and pick a start date.
- Sync: store a classroom pull for a student and recompute the stored plan.
- Summary: workload health, interventions and subject trends from progress snapshots.
- Links: parents request access, students accept or reject.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(err)
		stop()
		os.Exit(1)
	}
}

// dotEnvFile holds SMARTSTART_* overrides; it is optional.
const dotEnvFile = ".env"

func initConfig() {
	if _, err := os.Stat(dotEnvFile); err == nil {
		if err := godotenv.Load(dotEnvFile); err != nil {
			printError(fmt.Errorf("load %s: %w", dotEnvFile, err))
			os.Exit(1)
		}
	}
	viper.SetEnvPrefix("SMARTSTART")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().StringP("student", "s", "", "student id")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("student", rootCmd.PersistentFlags().Lookup("student"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(recommendationsCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(gradeCmd())
	rootCmd.AddCommand(linkCmd())
	rootCmd.AddCommand(childrenCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				if addr == "" {
					addr = env.Config.Server.Addr
				}
				if basePath == "" {
					basePath = env.Config.Server.BasePath
				}
				handler, err := server.New(server.Config{
					Engine:         env.Engine,
					BasePath:       basePath,
					AllowedOrigins: env.Config.Server.CORS.AllowedOrigins,
					Log:            env.Log,
				})
				if err != nil {
					return err
				}
				server.StartWebhookDispatcher(ctx, env.Engine, env.Log)
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				env.Log.Info().Str("addr", addr).Str("base_path", basePath).Msg("serving Smart Start API")
				fmt.Printf("Serving Smart Start API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config lives in smartstart.yml at the workspace root; missing keys fall back to defaults.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate smartstart.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": errString(err)})
			}
			if err != nil {
				return err
			}
			printSuccess("config OK")
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default smartstart.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			printSuccess("wrote %s", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "Every sync, recompute, snapshot, grade change and link decision is recorded here.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				events, err := env.Engine.RecentEvents(ctx, repo.EventFilter{
					StudentID: viper.GetString("student"),
					Type:      evtType,
					Limit:     n,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := newTable("ID", "Time", "Type", "Student", "Entity", "Payload")
				for _, e := range events {
					tw.AppendRow([]any{e.ID, e.TS, e.Type, e.StudentID, e.EntityKind + ":" + e.EntityID, e.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	return cmd
}

// --- helpers ---

func withEnv(ctx context.Context, fn func(context.Context, *app.Env) error) error {
	env, err := app.Open(ctx, viper.GetString("workspace"), app.Options{})
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env)
}

func requireStudent() (string, error) {
	id := strings.TrimSpace(viper.GetString("student"))
	if id == "" {
		return "", fmt.Errorf("--student required")
	}
	return id, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
