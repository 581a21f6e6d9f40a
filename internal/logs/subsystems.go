package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jrick/logrotate/rotator"
)

// logWriter fans a line out to stdout and the rotating main log file.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	if initiated {
		os.Stdout.Write(p)
		LogRotator.Write(p)
	}
	return len(p), nil
}

// errLogWriter fans a line out to stdout and the rotating error-only log file.
type errLogWriter struct{}

func (errLogWriter) Write(p []byte) (int, error) {
	if initiated {
		os.Stdout.Write(p)
		ErrLogRotator.Write(p)
	}
	return len(p), nil
}

var (
	backendLog = NewBackend([]*BackendWriter{
		NewAllLevelsBackendWriter(logWriter{}),
		NewErrorBackendWriter(errLogWriter{}),
	})

	// LogRotator is the main log output; Close it on shutdown.
	LogRotator *rotator.Rotator
	// ErrLogRotator is the error-only log output; Close it on shutdown.
	ErrLogRotator *rotator.Rotator

	initiated bool

	chainstoreLog = backendLog.Logger(SubsystemTags.CHST)
	verifierLog   = backendLog.Logger(SubsystemTags.VRFY)
	mempoolLog    = backendLog.Logger(SubsystemTags.MPOL)
	netsyncLog    = backendLog.Logger(SubsystemTags.SYNC)
	serverLog     = backendLog.Logger(SubsystemTags.SRVR)
	bloomLog      = backendLog.Logger(SubsystemTags.BLMF)
)

// SubsystemTags names the node's logging subsystems, one per component
// package, the same fixed-width four-letter convention the teacher's
// logger.go uses (ADXR, AMGR, ...).
var SubsystemTags = struct {
	CHST, VRFY, MPOL, SYNC, SRVR, BLMF string
}{
	CHST: "CHST",
	VRFY: "VRFY",
	MPOL: "MPOL",
	SYNC: "SYNC",
	SRVR: "SRVR",
	BLMF: "BLMF",
}

var subsystemLoggers = map[string]Logger{
	SubsystemTags.CHST: chainstoreLog,
	SubsystemTags.VRFY: verifierLog,
	SubsystemTags.MPOL: mempoolLog,
	SubsystemTags.SYNC: netsyncLog,
	SubsystemTags.SRVR: serverLog,
	SubsystemTags.BLMF: bloomLog,
}

// ChainStore, Verifier, Mempool, Netsync, Server, and Bloom are the
// subsystem loggers components import directly.
var (
	ChainStore = chainstoreLog
	Verifier   = verifierLog
	Mempool    = mempoolLog
	Netsync    = netsyncLog
	Server     = serverLog
	Bloom      = bloomLog
)

// InitLogRotators must be called once during startup, before any subsystem
// logger is used, to direct output to logFile and errLogFile (plus their
// rotated siblings in the same directory).
func InitLogRotators(logFile, errLogFile string) {
	initiated = true
	LogRotator = initLogRotator(logFile)
	ErrLogRotator = initLogRotator(errLogFile)
}

func initLogRotator(logFile string) *rotator.Rotator {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %s\n", err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %s\n", err)
		os.Exit(1)
	}
	return r
}

// SetLogLevel sets the level of a single subsystem, ignoring unknown tags.
func SetLogLevel(subsystemID, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, _ := LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets every subsystem to logLevel.
func SetLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// SupportedSubsystems returns the known subsystem tags, sorted.
func SupportedSubsystems() []string {
	tags := make([]string, 0, len(subsystemLoggers))
	for tag := range subsystemLoggers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// ParseAndSetDebugLevels parses a debug-level spec of either a single level
// ("info") or a comma-separated list of subsystem=level pairs
// ("CHST=debug,SYNC=trace"), the same grammar the teacher's CLI accepts.
func ParseAndSetDebugLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if _, ok := LevelFromString(debugLevel); !ok {
			return fmt.Errorf("the specified debug level [%s] is invalid", debugLevel)
		}
		SetLogLevels(debugLevel)
		return nil
	}

	for _, pair := range strings.Split(debugLevel, ",") {
		fields := strings.SplitN(pair, "=", 2)
		if len(fields) != 2 {
			return fmt.Errorf("the specified debug level contains an invalid subsystem/level pair [%s]", pair)
		}
		subsystemID, logLevel := fields[0], fields[1]
		if _, ok := subsystemLoggers[subsystemID]; !ok {
			return fmt.Errorf("the specified subsystem [%s] is invalid -- supported subsystems %s",
				subsystemID, strings.Join(SupportedSubsystems(), ", "))
		}
		if _, ok := LevelFromString(logLevel); !ok {
			return fmt.Errorf("the specified debug level [%s] is invalid", logLevel)
		}
		SetLogLevel(subsystemID, logLevel)
	}
	return nil
}
