package main

import (
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/chaincfg"
)

const (
	startSubCmd    = "start"
	importSubCmd   = "import"
	rollbackSubCmd = "rollback"
)

// netConfig is the network-selection flag set every subcommand shares,
// grounded on the teacher's config.NetConfig (cmd/config).
type netConfig struct {
	TestNet bool `long:"testnet" description:"Use the test network"`
	RegTest bool `long:"regtest" description:"Use the regression test network"`
}

func (c *netConfig) params() (*chaincfg.Params, error) {
	switch {
	case c.TestNet && c.RegTest:
		return nil, errors.New("--testnet and --regtest are mutually exclusive")
	case c.TestNet:
		return &chaincfg.TestNet3Params, nil
	case c.RegTest:
		return &chaincfg.RegressionNetParams, nil
	default:
		return &chaincfg.MainNetParams, nil
	}
}

type startConfig struct {
	DataDir    string `long:"datadir" description:"Directory to store the chain database in"`
	Listen     string `long:"listen" description:"Address to listen for peer connections on" default:"0.0.0.0"`
	LogLevel   string `long:"loglevel" description:"Logging level for all subsystems" default:"info"`
	MaxWorkers int    `long:"maxworkers" description:"Number of concurrent block verification workers" default:"4"`
	netConfig
}

type importConfig struct {
	DataDir string `long:"datadir" description:"Directory holding the chain database"`
	File    string `long:"file" description:"Block dump file to import" required:"true"`
	netConfig
}

type rollbackConfig struct {
	DataDir string `long:"datadir" description:"Directory holding the chain database"`
	Height  uint32 `long:"height" description:"Height to roll the main chain back to" required:"true"`
	netConfig
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "btcnode-data"
	}
	return filepath.Join(home, ".btcnode", "data")
}

// parseCommandLine parses os.Args, returning the active subcommand's name
// and its parsed config, in the manner of the teacher's kaspawallet
// parseCommandLine (one config struct per subcommand, selected by
// parser.Command.Active.Name).
func parseCommandLine() (string, interface{}, error) {
	var topLevel struct{}
	parser := flags.NewParser(&topLevel, flags.PrintErrors|flags.HelpFlag)

	start := &startConfig{}
	if _, err := parser.AddCommand(startSubCmd, "Run the node", "Starts the node, synchronizing and serving peers", start); err != nil {
		return "", nil, err
	}

	imp := &importConfig{}
	if _, err := parser.AddCommand(importSubCmd, "Import blocks from a dump file", "Imports blocks from a bootstrap dump file directly into the chain database", imp); err != nil {
		return "", nil, err
	}

	rollback := &rollbackConfig{}
	if _, err := parser.AddCommand(rollbackSubCmd, "Roll the chain back", "Rolls the main chain back to an earlier height", rollback); err != nil {
		return "", nil, err
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return "", nil, err
	}

	if parser.Command.Active == nil {
		return "", nil, errors.New("no subcommand given; expected start, import, or rollback")
	}

	switch parser.Command.Active.Name {
	case startSubCmd:
		if start.DataDir == "" {
			start.DataDir = defaultDataDir()
		}
		return startSubCmd, start, nil
	case importSubCmd:
		if imp.DataDir == "" {
			imp.DataDir = defaultDataDir()
		}
		return importSubCmd, imp, nil
	case rollbackSubCmd:
		if rollback.DataDir == "" {
			rollback.DataDir = defaultDataDir()
		}
		return rollbackSubCmd, rollback, nil
	default:
		return "", nil, errors.Errorf("unrecognized subcommand %q", parser.Command.Active.Name)
	}
}
