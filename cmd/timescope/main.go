package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/timescope/internal/observability"
	"github.com/hrygo/timescope/internal/profile"
	"github.com/hrygo/timescope/resolver"
	"github.com/hrygo/timescope/server"
	"github.com/hrygo/timescope/store"
	"github.com/hrygo/timescope/store/db"
	"github.com/hrygo/timescope/timezone"
)

const greetingBanner = `
 _   _
| |_(_)_ __ ___   ___  ___  ___ ___  _ __   ___
| __| | '_ ` + "`" + ` _ \ / _ \/ __|/ __/ _ \| '_ \ / _ \
| |_| | | | | | |  __/\__ \ (_| (_) | |_) |  __/
 \__|_|_| |_| |_|\___||___/\___\___/| .__/ \___|
                                    |_|
`

var (
	rootCmd = &cobra.Command{
		Use:   "timescope",
		Short: "A DST-safe time range resolution service",
		RunE: func(_ *cobra.Command, _ []string) error {
			instanceProfile := loadProfile()
			if err := instanceProfile.Validate(); err != nil {
				return err
			}
			logger := observability.NewLogger(instanceProfile.Mode)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			dbDriver, err := db.NewDBDriver(instanceProfile)
			if err != nil {
				return fmt.Errorf("failed to create db driver: %w", err)
			}
			storeInstance := store.New(dbDriver, instanceProfile)

			s, err := server.NewServer(ctx, instanceProfile, storeInstance, logger)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
				cancel()
			}()

			fmt.Print(greetingBanner)
			fmt.Printf("Version %s has been started on %s:%d\n", instanceProfile.Version, instanceProfile.Addr, instanceProfile.Port)

			if err := s.Start(ctx); err != nil {
				logger.Error("server exited with error", slog.Any("error", err))
			}
			s.Shutdown(context.Background())
			return nil
		},
	}

	resolveCmd = &cobra.Command{
		Use:   "resolve FROM TO",
		Short: "Resolve a time range expression pair and print the result as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			instanceProfile := loadProfile()
			mode, err := timezone.ParseMode(instanceProfile.DefaultTimezone)
			if err != nil {
				return err
			}

			def := resolver.TimeRangeDefinition{
				From: resolver.EndpointDef{Expr: args[0]},
				To:   resolver.EndpointDef{Expr: args[1]},
			}
			opts := resolver.Options{
				Timezone:     mode,
				WeekStartsOn: instanceProfile.WeekStart(),
			}
			if at, _ := cmd.Flags().GetString("at"); at != "" {
				now, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
				opts.Now = now
			}

			resolved, err := resolver.ResolveRange(def, opts)
			if err != nil {
				if rerr, ok := err.(*resolver.ResolveError); ok {
					return fmt.Errorf("%s: %s", rerr.Code, rerr.Message)
				}
				return err
			}
			out, err := json.MarshalIndent(resolver.ResolvedPayload{Definition: def, Resolved: resolved}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
)

// loadProfile builds the profile from viper-bound flags and env vars.
func loadProfile() *profile.Profile {
	p := &profile.Profile{
		Mode:            viper.GetString("mode"),
		Addr:            viper.GetString("addr"),
		Port:            viper.GetInt("port"),
		Data:            viper.GetString("data"),
		Driver:          viper.GetString("driver"),
		DSN:             viper.GetString("dsn"),
		DefaultTimezone: viper.GetString("timezone"),
		WeekStartsOn:    viper.GetString("week-starts-on"),
		HistoryLimit:    viper.GetInt("history-limit"),
		Version:         "0.1.0",
	}
	p.FromEnv()
	return p
}

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8081)
	viper.SetDefault("timezone", "UTC")
	viper.SetDefault("week-starts-on", "monday")
	viper.SetDefault("history-limit", 50)

	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("timezone", "UTC", `default timezone selector ("UTC", "local", or an IANA id)`)
	rootCmd.PersistentFlags().String("week-starts-on", "monday", `first day of the week ("sunday" or "monday")`)
	rootCmd.PersistentFlags().Int("history-limit", 50, "maximum applied ranges retained in history")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "timezone", "week-starts-on", "history-limit"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("timescope")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	resolveCmd.Flags().String("at", "", "pin the reference instant (RFC3339) instead of using the current time")
	rootCmd.AddCommand(resolveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
