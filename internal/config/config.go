// Package config builds the daemon's immutable Configuration value
// (§9 design note: "process-wide parsed options ... constructed by
// the out-of-scope CLI/config loader and passed by reference to every
// component that needs it; no component mutates it"). Parsing is done
// with the standard flag package — see DESIGN.md for why no
// third-party CLI library is wired in for a daemon this small.
package config

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"
)

// LogLevel mirrors the original's src/log.rs LogLevel enum.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarning
	LogError
)

func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LogDebug:
		return logrus.DebugLevel
	case LogInfo:
		return logrus.InfoLevel
	case LogWarning:
		return logrus.WarnLevel
	case LogError:
		return logrus.ErrorLevel
	default:
		return logrus.WarnLevel
	}
}

func parseLogLevel(s string) (LogLevel, error) {
	switch s {
	case "debug":
		return LogDebug, nil
	case "info":
		return LogInfo, nil
	case "warning":
		return LogWarning, nil
	case "error":
		return LogError, nil
	default:
		return 0, fmt.Errorf("config: unknown log level %q", s)
	}
}

// Config is the immutable, process-wide configuration built once in
// cmd/dpibreak/main.go and handed by pointer to every component that
// reads it. No method on Config mutates it.
type Config struct {
	DelayMS    uint64
	QueueNum   uint16
	NFTCommand string
	LogLevel   LogLevel
	NoSplash   bool

	Fake        bool
	FakeTTL     uint8
	FakeAutoTTL bool
	FakeBadsum  bool
}

// Parse builds a Config from args (normally os.Args[1:]), applying
// the --fake-* implication rules from §6: any of --fake-ttl,
// --fake-autottl, --fake-badsum implies --fake.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("dpibreak", flag.ContinueOnError)

	delayMS := fs.Uint64("delay-ms", 0, "wall-time sleep between emitted segments")
	queueNum := fs.Uint("queue-num", 1, "kernel packet-queue identifier (kernel-queue platform only)")
	nftCommand := fs.String("nft-command", "nft", "rule-loader program (kernel-queue platform only)")
	logLevel := fs.String("log-level", "warning", "one of {debug,info,warning,error}")
	noSplash := fs.Bool("no-splash", false, "suppress banner")
	fake := fs.Bool("fake", false, "enable decoy injection")
	fakeTTL := fs.Uint("fake-ttl", 8, "decoy IP TTL; implies --fake")
	fakeAutoTTL := fs.Bool("fake-autottl", false, "derive decoy TTL per-destination from HopTab; implies --fake")
	fakeBadsum := fs.Bool("fake-badsum", false, "corrupt decoy TCP checksum; implies --fake")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	level, err := parseLogLevel(*logLevel)
	if err != nil {
		return nil, err
	}

	fakeTTLExplicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "fake-ttl" {
			fakeTTLExplicit = true
		}
	})

	effectiveFake := *fake || *fakeAutoTTL || *fakeBadsum || fakeTTLExplicit

	return &Config{
		DelayMS:     *delayMS,
		QueueNum:    uint16(*queueNum),
		NFTCommand:  *nftCommand,
		LogLevel:    level,
		NoSplash:    *noSplash,
		Fake:        effectiveFake,
		FakeTTL:     uint8(*fakeTTL),
		FakeAutoTTL: *fakeAutoTTL,
		FakeBadsum:  *fakeBadsum,
	}, nil
}

// ConfigureLogrus applies LogLevel to logger.
func (c *Config) ConfigureLogrus(logger *logrus.Logger) {
	logger.SetLevel(c.LogLevel.logrusLevel())
}
