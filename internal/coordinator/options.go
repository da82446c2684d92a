package coordinator

import (
	"time"

	"github.com/nerrad567/lanlight/internal/device"
	"github.com/nerrad567/lanlight/internal/infrastructure/config"
)

// Default timings.
const (
	DefaultPollInterval     = 15 * time.Second
	DefaultInitialPollDelay = 200 * time.Millisecond
	DefaultRefreshInterval  = 100 * time.Millisecond
	DefaultPollRepeats      = 3
	DefaultRouterWait       = 5 * time.Second
	DefaultPANWait          = 2 * time.Second
)

// Options configures a Coordinator. Zero values take the defaults.
type Options struct {
	// PollInterval is the period of the repeating poll burst. Default: 15s.
	PollInterval time.Duration

	// InitialPollDelay is the delay before the first poll burst. Default: 200ms.
	InitialPollDelay time.Duration

	// RefreshInterval is the eviction sweep period. Default: 100ms.
	RefreshInterval time.Duration

	// PollRepeats is how many times each state request is broadcast per
	// burst, to ride out datagram loss. Default: 3.
	PollRepeats int

	// RouterWait bounds the router-attached stage of WaitForLoaded. Default: 5s.
	RouterWait time.Duration

	// PANWait bounds the PAN-sighted stage of WaitForLoaded. Default: 2s.
	PANWait time.Duration

	// StaleAfter is passed to Lights. Default: 30s.
	StaleAfter time.Duration

	// InitLoadSettle is passed to Lights. Default: 1s.
	InitLoadSettle time.Duration

	// Logger is optional.
	Logger Logger
}

// OptionsFromConfig maps the lan section of the configuration onto Options.
func OptionsFromConfig(cfg config.LANConfig, logger Logger) Options {
	return Options{
		PollInterval:     cfg.PollInterval,
		InitialPollDelay: cfg.InitialPollDelay,
		RefreshInterval:  cfg.RefreshInterval,
		PollRepeats:      cfg.PollRepeats,
		RouterWait:       cfg.RouterWait,
		PANWait:          cfg.PANWait,
		StaleAfter:       cfg.StaleAfter,
		InitLoadSettle:   cfg.InitLoadSettle,
		Logger:           logger,
	}
}

func (o *Options) applyDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.InitialPollDelay <= 0 {
		o.InitialPollDelay = DefaultInitialPollDelay
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = DefaultRefreshInterval
	}
	if o.PollRepeats <= 0 {
		o.PollRepeats = DefaultPollRepeats
	}
	if o.RouterWait <= 0 {
		o.RouterWait = DefaultRouterWait
	}
	if o.PANWait <= 0 {
		o.PANWait = DefaultPANWait
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = device.DefaultStaleAfter
	}
	if o.InitLoadSettle == 0 {
		o.InitLoadSettle = device.DefaultInitLoadSettle
	}
	if o.Logger == nil {
		o.Logger = noopLogger{}
	}
}
