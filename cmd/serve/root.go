package serve

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	cmdUtil "github.com/kastelo/treedb/cmd/util"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kastelo/treedb/internal/config"
	"github.com/kastelo/treedb/internal/logging"
	"github.com/kastelo/treedb/internal/supervisor"
)

var (
	serveCmdConfig = &config.Config{}

	// ServeCmd starts the treedb server.
	ServeCmd = &cobra.Command{
		Use:     "serve",
		Short:   "Start the treedb server",
		Long:    `Start the treedb server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is TREEDB_<flag> (e.g. TREEDB_LOG_LEVEL=debug)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, ":9090", cmdUtil.WrapString("The TCP address the client listener binds to"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address the /metrics HTTP endpoint binds to; empty disables metrics"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "max-len"
	ServeCmd.PersistentFlags().Int(key, 255, cmdUtil.WrapString("The maximum length in bytes of a name or value accepted by the command interpreter"))
}

// processConfig reads the configuration from flags and environment
// variables into serveCmdConfig.
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.MaxNameValueLen = viper.GetInt("max-len")

	return serveCmdConfig.Validate()
}

// run starts the treedb server and blocks until it has shut down.
func run(_ *cobra.Command, _ []string) error {
	logging.SetLevel(serveCmdConfig.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	srv := supervisor.New(serveCmdConfig)
	return srv.Run(ctx)
}

// initConfig reads in .env files and environment variables.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("treedb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
