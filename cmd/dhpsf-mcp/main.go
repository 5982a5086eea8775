package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/dhpsf-tools-mcp/internal/config"
	"github.com/ironsheep/dhpsf-tools-mcp/internal/server"
	"github.com/ironsheep/dhpsf-tools-mcp/internal/store"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const defaultConfigPath = "dhpsf.yaml"

func main() {
	configPath := os.Getenv("DHPSF_MCP_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	// Handle --version, --help and --config
	args := os.Args[1:]
	for len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Printf("dhpsf-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		case "--config", "-c":
			if len(args) < 2 {
				fmt.Fprintln(os.Stderr, "--config requires a path")
				os.Exit(2)
			}
			configPath = args[1]
			args = args[2:]
			continue
		case "--init-config":
			if err := config.CreateDefaultConfigFile(configPath); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Wrote default configuration to %s\n", configPath)
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown argument: %s\n", args[0])
			os.Exit(2)
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := run(configPath); err != nil {
		log.Printf("Server error: %v", err)
		os.Exit(1)
	}
}

// run serves MCP on stdin/stdout until input ends or a signal arrives.
func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if os.Getenv("DHPSF_MCP_LOG_LEVEL") == "debug" {
		cfg.Logging.Level = "debug"
	}
	if cfg.Debug() {
		log.Printf("DH-PSF MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("Config: %s", configPath)
	}

	var runs *store.Store
	if cfg.Storage.DBPath != "" {
		runs, err = store.NewStore(cfg.Storage.DBPath)
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		defer runs.Close()
	}

	server.Version = Version
	srv, err := server.New(cfg, runs)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run blocks reading stdin, so a signal is handled here rather than
	// waiting for the next request line.
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if cfg.Debug() {
			log.Printf("Shutting down: %v", context.Cause(ctx))
		}
		return nil
	}
}

func printHelp() {
	fmt.Println("dhpsf-tools-mcp - MCP server for double-helix PSF defocus estimation")
	fmt.Println()
	fmt.Println("Usage: dhpsf-tools-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config, -c PATH   Configuration file (default: dhpsf.yaml)")
	fmt.Println("  --init-config       Write a default configuration file and exit")
	fmt.Println("  --version, -v       Print version information")
	fmt.Println("  --help, -h          Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  DHPSF_MCP_CONFIG=PATH         Configuration file")
	fmt.Println("  DHPSF_MCP_LOG_LEVEL=debug     Enable debug logging")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
