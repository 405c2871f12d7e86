package aisen

import (
	"context"
	"time"
)

// SDKName identifies events produced by this library.
const SDKName = "aisen.go"

// SDKVersion is the version reported in SDKInfo.
const SDKVersion = "0.4.0"

// Options are the read-only settings of a Collector.
type Options struct {
	// SendDefaultPII allows collection of personally identifiable data such as
	// client IP addresses.
	SendDefaultPII bool

	// SDK is stamped on events that carry no SDK information yet.
	SDK *SDKInfo
}

// Collector records error events to configured sinks.
// Implementations must be safe for concurrent use.
type Collector interface {
	// Record captures an error event. Blocks until the sink accepts it.
	// Applies scrubbing and fingerprinting before delegating to sinks.
	Record(ctx context.Context, event ErrorEvent) error

	// Options returns the collector settings. They never change after construction.
	Options() Options

	// Flush ensures any buffered events are persisted.
	// For synchronous collectors, this may be a no-op.
	Flush(ctx context.Context) error

	// Close releases resources held by the collector.
	Close() error
}

// CollectorOption configures a Collector.
type CollectorOption func(*collectorConfig)

type collectorConfig struct {
	sink           Sink
	scrubber       *Scrubber
	sendDefaultPII bool
	sdk            *SDKInfo
	startTime      *time.Time
}

// WithSink sets the sink for the collector.
func WithSink(sink Sink) CollectorOption {
	return func(c *collectorConfig) {
		c.sink = sink
	}
}

// WithScrubber configures the collector with a custom scrubber configuration.
func WithScrubber(cfg ScrubberConfig) CollectorOption {
	return func(c *collectorConfig) {
		c.scrubber = NewScrubber(cfg)
	}
}

// WithDefaultScrubbing enables scrubbing with production-safe defaults.
func WithDefaultScrubbing() CollectorOption {
	return func(c *collectorConfig) {
		c.scrubber = NewScrubber(DefaultScrubberConfig())
	}
}

// WithSendDefaultPII allows integrations to attach personally identifiable
// data such as remote addresses.
func WithSendDefaultPII(enabled bool) CollectorOption {
	return func(c *collectorConfig) {
		c.sendDefaultPII = enabled
	}
}

// WithSDKInfo overrides the SDK information stamped on events.
// Passing nil disables SDK stamping.
func WithSDKInfo(sdk *SDKInfo) CollectorOption {
	return func(c *collectorConfig) {
		c.sdk = sdk.Clone()
	}
}

// WithSystemState attaches a SystemState snapshot to events that lack one.
// startTime is used to compute process uptime.
func WithSystemState(startTime time.Time) CollectorOption {
	return func(c *collectorConfig) {
		c.startTime = &startTime
	}
}

// DefaultSDKInfo returns the SDK information used when none is configured.
func DefaultSDKInfo() *SDKInfo {
	return &SDKInfo{
		Name:    SDKName,
		Version: SDKVersion,
		Packages: []SDKPackage{
			{Name: "go:github.com/strongdm/http-observe/pkg/aisen", Version: SDKVersion},
		},
	}
}

// defaultCollector is the standard Collector implementation.
type defaultCollector struct {
	sink      Sink
	scrubber  *Scrubber
	options   Options
	startTime *time.Time
}

// NewCollector creates a new Collector with the given options.
func NewCollector(opts ...CollectorOption) Collector {
	cfg := &collectorConfig{
		sdk: DefaultSDKInfo(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.sink == nil {
		cfg.sink = discard
	}

	return &defaultCollector{
		sink:     cfg.sink,
		scrubber: cfg.scrubber,
		options: Options{
			SendDefaultPII: cfg.sendDefaultPII,
			SDK:            cfg.sdk,
		},
		startTime: cfg.startTime,
	}
}

// Options returns the collector settings. The SDK info is a copy.
func (c *defaultCollector) Options() Options {
	opts := c.options
	opts.SDK = opts.SDK.Clone()
	return opts
}

// Record fills in the event ID, timestamp, system state and fingerprint when
// missing, scrubs, and writes to the sink.
func (c *defaultCollector) Record(ctx context.Context, event ErrorEvent) error {
	// Generate EventID if not set
	if event.EventID.IsZero() {
		event.EventID = NewEventID()
	}

	// Set timestamp if not set
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if event.SystemState == nil && c.startTime != nil {
		event.SystemState = CaptureSystemState(*c.startTime)
	}

	if c.scrubber != nil {
		event = c.scrubber.ScrubEvent(event)
	}

	// a caller-chosen fingerprint overrides grouping
	if event.Fingerprint == "" {
		event.Fingerprint = Fingerprint(event)
	}

	return c.sink.Write(ctx, event)
}

// Flush delegates to the sink.
func (c *defaultCollector) Flush(ctx context.Context) error {
	return c.sink.Flush(ctx)
}

// Close delegates to the sink.
func (c *defaultCollector) Close() error {
	return c.sink.Close()
}
