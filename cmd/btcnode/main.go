// Command btcnode runs the full node: headers-first synchronization,
// mempool relay, and peer serving, plus offline maintenance subcommands
// (import, rollback) operating directly on the chain database.
//
// Grounded on the teacher's kaspad.go (the top-level wiring of store,
// mempool, and networking into one running process) and cmd/addblock
// (the offline bulk-import tool), collapsed into one binary with
// subcommands in the manner of the teacher's cmd/kaspawallet.
package main

import (
	"fmt"
	"os"

	"github.com/daglabs/btcnode/internal/logs"
)

func main() {
	subCmd, cfg, err := parseCommandLine()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var runErr error
	switch subCmd {
	case startSubCmd:
		runErr = runStart(cfg.(*startConfig))
	case importSubCmd:
		runErr = runImport(cfg.(*importConfig))
	case rollbackSubCmd:
		runErr = runRollback(cfg.(*rollbackConfig))
	}
	if runErr != nil {
		logs.Server.Criticalf("%v", runErr)
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}
