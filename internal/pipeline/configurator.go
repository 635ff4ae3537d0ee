/**
 * Pipeline configuration.
 *
 * Translates validated processing options into the engine-side conversion
 * config and resolves the accelerator device against what the engine
 * actually has available.
 */

package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/doclab/doclab/internal/engine"
	"github.com/doclab/doclab/internal/options"
)

// Session is a ready-to-use conversion configuration bound to the engine
// client. Sessions are immutable after Build and safe for concurrent use.
type Session struct {
	Client *engine.Client
	Config *engine.PipelineConfig
	Device string
	Key    string
}

// Configurator builds Sessions from options.
type Configurator struct {
	client     *engine.Client
	logger     *zap.Logger
	numThreads int
}

// NewConfigurator creates a configurator bound to an engine client.
func NewConfigurator(client *engine.Client, numThreads int, logger *zap.Logger) *Configurator {
	return &Configurator{
		client:     client,
		logger:     logger.Named("pipeline"),
		numThreads: numThreads,
	}
}

// Build resolves the device and assembles the engine config for opts.
// Options must already be validated.
func (c *Configurator) Build(ctx context.Context, opts options.ProcessingOptions) (*Session, error) {
	device := c.resolveDevice(ctx, opts.Accelerator)

	cfg := &engine.PipelineConfig{
		Pipeline:             string(opts.Pipeline),
		Device:               device,
		NumThreads:           c.numThreads,
		DoOCR:                opts.OCREnabled,
		DoTableStructure:     opts.DoTableStructure,
		DoCodeEnrichment:     opts.DoCodeEnrichment,
		DoFormulaEnrichment:  opts.DoFormulaEnrichment,
		DoPictureDescription: opts.DoPictureDescription,
	}
	if opts.OCREnabled {
		cfg.OCREngine = string(opts.OCRLibrary)
		cfg.OCRLanguages = append([]string(nil), opts.OCRLanguages...)
		cfg.ForceFullPageOCR = opts.ForceFullPageOCR
	}
	if opts.DoTableStructure {
		cfg.TableMode = "accurate"
	}

	return &Session{
		Client: c.client,
		Config: cfg,
		Device: device,
		Key:    opts.Fingerprint(),
	}, nil
}

// resolveDevice checks an explicitly requested device against the engine's
// advertised capabilities. Unavailable devices degrade to cpu with a warning
// rather than failing the run. "auto" and "cpu" pass through untouched, and
// a capabilities probe failure also passes the request through so the engine
// itself stays the authority.
func (c *Configurator) resolveDevice(ctx context.Context, acc options.Accelerator) string {
	device := string(acc)
	if acc == options.AcceleratorAuto || acc == options.AcceleratorCPU {
		return device
	}

	caps, err := c.client.Capabilities(ctx)
	if err != nil {
		c.logger.Warn("capability probe failed, passing device through",
			zap.String("device", device), zap.Error(err))
		return device
	}

	for _, d := range caps.Devices {
		if d == device {
			return device
		}
	}

	c.logger.Warn("requested device unavailable, falling back to cpu",
		zap.String("requested", device),
		zap.Strings("available", caps.Devices))
	return string(options.AcceleratorCPU)
}
