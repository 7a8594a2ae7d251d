package file

import (
	"fmt"
	"os"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/shengyf2/sqliteredis/cmd/util"
	"github.com/shengyf2/sqliteredis/lib/kvvfs"
	"github.com/shengyf2/sqliteredis/lib/store"
	"github.com/shengyf2/sqliteredis/lib/vfs"
	"github.com/shengyf2/sqliteredis/lib/vfs/osvfs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileCommands groups the commands working on files stored through the layer
var FileCommands = &cobra.Command{
	Use:   "file",
	Short: "Copy, inspect and remove database files kept in the store",
	Long: `Copy, inspect and remove database files kept in the store.
The file name is the key prefix of its blocks, e.g. "app.db" is stored as
app.db:meta, app.db:0, app.db:1, ...`,
}

func init() {
	util.SetupStoreFlags(FileCommands)

	key := "busy-retries"
	FileCommands.PersistentFlags().Uint(key, 50, util.WrapString("How often a lock request answered with BUSY is retried"))

	key = "busy-delay"
	FileCommands.PersistentFlags().Duration(key, 100*time.Millisecond, util.WrapString("The delay between two lock requests"))

	FileCommands.AddCommand(putCmd, getCmd, statCmd, rmCmd, truncateCmd)
}

// session is the layer set up for one command
type session struct {
	vfs     vfs.IVFS
	dialer  store.Dialer
	lease   time.Duration
	release func() error
}

func (s *session) close() {
	if err := kvvfs.Unregister(); err != nil {
		util.Logger.Warningf("unregister: %v", err)
	}
	if err := s.release(); err != nil {
		util.Logger.Warningf("close store: %v", err)
	}
}

// openSession registers the layer on top of the OS vfs in the default registry
func openSession() (*session, error) {
	dialer, release, err := util.GetDialer()
	if err != nil {
		return nil, err
	}
	cfg, err := util.GetLayerConfig(dialer)
	if err != nil {
		_ = release()
		return nil, err
	}
	if vfs.DefaultRegistry.Find(osvfs.Name) == nil {
		if err := vfs.DefaultRegistry.Register(osvfs.New(), true); err != nil {
			_ = release()
			return nil, err
		}
	}
	v, err := kvvfs.Register(vfs.DefaultRegistry, cfg)
	if err != nil {
		_ = release()
		return nil, err
	}
	return &session{vfs: v, dialer: dialer, lease: cfg.LeaseTimeout, release: release}, nil
}

func busyPolicy() BusyPolicy {
	return BusyPolicy{
		Attempts: viper.GetUint("busy-retries"),
		Delay:    viper.GetDuration("busy-delay"),
	}
}

var putCmd = &cobra.Command{
	Use:   "put <local file> <name>",
	Short: "Copy a local database file into the store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer src.Close()

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		n, err := Put(s.vfs, src, args[1], busyPolicy())
		if err != nil {
			return err
		}
		fmt.Printf("stored %s as %s (%s)\n", args[0], args[1], datasize.ByteSize(n).HumanReadable())
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <name> <local file>",
	Short: "Copy a database file from the store to a local file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		dst, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer func() {
			if cErr := dst.Close(); err == nil {
				err = cErr
			}
		}()

		n, err := Get(s.vfs, args[0], dst, busyPolicy())
		if err != nil {
			return err
		}
		fmt.Printf("copied %s to %s (%s)\n", args[0], args[1], datasize.ByteSize(n).HumanReadable())
		return nil
	},
}

var statCmd = &cobra.Command{
	Use:   "stat <name>",
	Short: "Print the metadata and lock markers of a file as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		conn, err := s.dialer()
		if err != nil {
			return err
		}
		defer conn.Close()

		info, err := kvvfs.Stat(conn, args[0], s.lease, time.Now())
		if err != nil {
			return fmt.Errorf("stat %s: %w", args[0], err)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		return enc.Encode(info)
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a file with all its blocks and lock records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		return s.vfs.Delete(args[0], true)
	},
}

var truncateCmd = &cobra.Command{
	Use:   "truncate <name> <size>",
	Short: "Shrink or extend a file to size (e.g. 8KB)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		size, err := util.ParseSize(args[1])
		if err != nil {
			return fmt.Errorf("invalid size %s: %w", args[1], err)
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		return Truncate(s.vfs, args[0], size, busyPolicy())
	},
}
