package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/go-tangra/go-tangra-hwdb/internal/collector"
	"github.com/go-tangra/go-tangra-hwdb/internal/config"
	"github.com/go-tangra/go-tangra-hwdb/internal/convert"
	"github.com/go-tangra/go-tangra-hwdb/internal/sender"
)

var (
	version    = "dev"
	commitHash = "unknown"
	buildDate  = "unknown"
)

var (
	cfgFile    string
	outputFile string
	upload     bool
)

var rootCmd = &cobra.Command{
	Use:   "hwprobe",
	Short: "hwprobe - collect this machine's hardware inventory",
	Long: `hwprobe reads the local hardware (system identity, CPU, memory, GPUs,
disks, display resolution) and prints it as JSON.

With --upload the inventory is submitted once to an hwdb server after
waiting for it to become reachable.`,
	SilenceUsage: true,
	RunE:         run,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hwprobe %s (commit: %s, built: %s)\n", version, commitHash, buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./hwprobe.yaml)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write JSON output to file instead of stdout")
	rootCmd.Flags().BoolVar(&upload, "upload", false, "submit the inventory to the hwdb server")
	rootCmd.Flags().String("server", "", "hwdb HTTP base URL (default http://localhost:5000)")
	rootCmd.Flags().String("transport", "", "upload transport: http or grpc")
	rootCmd.Flags().String("grpc-addr", "", "hwdb gRPC address (default localhost:5001)")
	rootCmd.Flags().Duration("wait-timeout", 0, "how long to wait for the server to become reachable")
	rootCmd.Flags().String("log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Probe, error) {
	cfg, err := config.LoadProbe(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// CLI flag overrides.
	flags := cmd.Flags()
	if v, _ := flags.GetString("server"); v != "" {
		cfg.Server = v
	}
	if v, _ := flags.GetString("transport"); v != "" {
		cfg.Transport = v
	}
	if v, _ := flags.GetString("grpc-addr"); v != "" {
		cfg.GRPCAddr = v
	}
	if v, _ := flags.GetDuration("wait-timeout"); v > 0 {
		cfg.WaitTimeout = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// stdout carries the JSON document, so logs go to stderr.
	logger := log.NewFilter(
		log.With(log.NewStdLogger(os.Stderr), "ts", log.DefaultTimestamp, "caller", log.DefaultCaller),
		log.FilterLevel(log.ParseLevel(cfg.LogLevel)),
	)
	helper := log.NewHelper(log.With(logger, "module", "hwprobe"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec, err := collector.New().Collect(ctx)
	for _, w := range multierr.Errors(err) {
		helper.Warnf("collect: %v", w)
	}
	if rec == nil {
		return fmt.Errorf("collect inventory: %w", err)
	}

	var w io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	if outputFile != "" {
		helper.Infof("inventory written to %s", outputFile)
	}

	if !upload {
		return nil
	}

	s := sender.New(sender.Options{
		Server:        cfg.Server,
		Transport:     cfg.Transport,
		GRPCAddr:      cfg.GRPCAddr,
		WaitTimeout:   cfg.WaitTimeout,
		WaitInterval:  cfg.WaitInterval,
		UploadTimeout: cfg.UploadTimeout,
	}, logger)

	id, err := s.Upload(ctx, convert.RecordToPayload(rec))
	if err != nil {
		return fmt.Errorf("upload inventory: %w", err)
	}
	helper.Infof("inventory uploaded via %s (pc_id: %s)", cfg.Transport, id)
	return nil
}
