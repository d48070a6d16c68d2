package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/integrity/sanctions-crosscheck/internal/config"
	"github.com/integrity/sanctions-crosscheck/internal/pkg/logger"
)

// cli carries state shared by every subcommand
type cli struct {
	v       *viper.Viper
	cfgFile string
	quiet   bool
	out     io.Writer

	cfg *config.Config
	log *logger.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:   "crosscheck",
		Short: "Cross-check sanction registries against public contracts",
		Long: `crosscheck flags public contracts signed with suppliers while they were
under an active sanction, and screens single CPF/CNPJ documents against the
federal transparency sources.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.initConfig,
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	root.PersistentFlags().BoolVarP(&c.quiet, "quiet", "q", false, "suppress logs")
	root.PersistentFlags().Bool("debug", false, "enable debug logging")
	_ = c.v.BindPFlag("telemetry.debug", root.PersistentFlags().Lookup("debug"))

	root.AddCommand(c.scanCmd())
	root.AddCommand(c.lookupCmd())
	root.AddCommand(c.tokenCmd())
	return root
}

func (c *cli) initConfig(*cobra.Command, []string) error {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	}
	cfg, err := config.LoadWith(c.v)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	c.cfg = cfg

	if c.quiet {
		c.log = logger.NewNop()
		return nil
	}
	c.log, err = logger.New(cfg.Telemetry.ServiceName, cfg.Telemetry.Environment, cfg.Telemetry.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	return nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
