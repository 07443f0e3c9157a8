// Command mwtunnel is the desktop wrapper around the tunnel engine: a
// flag-driven CLI for one-shot runs, or an IPC mode that serves the
// Control API as newline-delimited JSON on stdin/stdout for embedding in a
// desktop shell.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"mwtunnel/engine"
	"mwtunnel/internal/logger"
)

// fileConfig is the optional -config YAML file shape, mirroring the flag
// surface for users who prefer a file over long flag lists.
type fileConfig struct {
	LocalPort      string   `yaml:"local_port"`
	Server         string   `yaml:"server"`
	Password       string   `yaml:"password"`
	ProxyType      string   `yaml:"proxy_type"`
	SplitRuleFiles []string `yaml:"split_rule_files"`
	LogLevel       string   `yaml:"log_level"`
}

func main() {
	localPort := flag.String("local-port", "1080", "local proxy listen port")
	server := flag.String("server", "", "remote tunnel server host:port")
	password := flag.String("password", "", "shared tunnel password")
	proxyType := flag.String("proxy-type", "socks5", "local proxy type: socks5 or http")
	splitRules := flag.String("split-rules", "", "comma-separated split-tunnel rule file paths")
	configPath := flag.String("config", "", "optional YAML config file, overridden by any flag also set")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	ipcMode := flag.Bool("ipc", false, "serve the Control API as newline-delimited JSON on stdin/stdout")
	flag.Parse()

	cfg := fileConfig{
		LocalPort: *localPort,
		Server:    *server,
		Password:  *password,
		ProxyType: *proxyType,
		LogLevel:  *logLevel,
	}
	if *configPath != "" {
		if err := loadFileConfig(*configPath, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "mwtunnel: %v\n", err)
			os.Exit(1)
		}
	}
	if *splitRules != "" {
		cfg.SplitRuleFiles = strings.Split(*splitRules, ",")
	}

	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetGlobalLevel(level)
	}

	e := engine.New()

	if len(cfg.SplitRuleFiles) > 0 {
		if err := e.UpdateSplitRules(cfg.SplitRuleFiles); err != nil {
			fmt.Fprintf(os.Stderr, "mwtunnel: split rules: %v\n", err)
		}
	}

	if *ipcMode {
		if err := e.ServeIPC(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "mwtunnel: ipc: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if cfg.Server == "" || cfg.Password == "" {
		fmt.Fprintln(os.Stderr, "mwtunnel: -server and -password are required outside -ipc mode")
		os.Exit(1)
	}

	if err := e.Start(cfg.LocalPort, cfg.Server, cfg.Password, engine.ProxyType(cfg.ProxyType)); err != nil {
		fmt.Fprintf(os.Stderr, "mwtunnel: start: %v\n", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	e.Stop()
	os.Exit(0)
}

// loadFileConfig reads path as YAML into cfg, preserving any field the CLI
// flags already set explicitly (non-empty) over the file's value.
func loadFileConfig(path string, cfg *fileConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fromFile fileConfig
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if cfg.Server == "" {
		cfg.Server = fromFile.Server
	}
	if cfg.Password == "" {
		cfg.Password = fromFile.Password
	}
	if !set["local-port"] && fromFile.LocalPort != "" {
		cfg.LocalPort = fromFile.LocalPort
	}
	if !set["proxy-type"] && fromFile.ProxyType != "" {
		cfg.ProxyType = fromFile.ProxyType
	}
	if len(fromFile.SplitRuleFiles) > 0 {
		cfg.SplitRuleFiles = fromFile.SplitRuleFiles
	}
	if !set["log-level"] && fromFile.LogLevel != "" {
		cfg.LogLevel = fromFile.LogLevel
	}
	return nil
}
