package cmd

import (
	"fmt"
	"os"

	"github.com/shengyf2/sqliteredis/cmd/file"
	"github.com/shengyf2/sqliteredis/cmd/serve"
	"github.com/shengyf2/sqliteredis/cmd/util"
	"github.com/shengyf2/sqliteredis/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "kvvfs",
		Short: "database files stored in a key-value store",
		Long: fmt.Sprintf(`kvvfs (v%s)

A virtual file system layer that keeps the main database file of an
embedded SQL engine as fixed size blocks in a key-value store (redis,
the bundled store server or an embedded badger database).`, Version),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := util.BindCommandFlags(cmd); err != nil {
				return err
			}
			return common.InitLoggers(viper.GetString("log-level"))
		},
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kvvfs",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kvvfs v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(file.FileCommands)
	RootCmd.AddCommand(versionCmd)

	key := "log-level"
	RootCmd.PersistentFlags().String(key, "warn", util.WrapString("log level (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
