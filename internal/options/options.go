/**
 * Processing options model.
 *
 * Every run of the processor is parameterized by a ProcessingOptions value.
 * Options are validated up front; invalid combinations never reach the
 * conversion engine.
 */

package options

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/doclab/doclab/internal/errors"
)

// Pipeline selects the engine conversion pipeline.
type Pipeline string

const (
	PipelineStandard Pipeline = "standard"
	PipelineVLM      Pipeline = "vlm"
)

// Accelerator selects the compute device for the pipeline.
type Accelerator string

const (
	AcceleratorAuto Accelerator = "auto"
	AcceleratorCPU  Accelerator = "cpu"
	AcceleratorCUDA Accelerator = "cuda"
	AcceleratorMPS  Accelerator = "mps"
)

// OCRLibrary selects the OCR backend.
type OCRLibrary string

const (
	OCRRapid     OCRLibrary = "rapidocr"
	OCREasy      OCRLibrary = "easyocr"
	OCRTesseract OCRLibrary = "tesseract"
)

// OutputFormat selects the result shape.
type OutputFormat string

const (
	FormatMarkdown OutputFormat = "markdown"
	FormatJSON     OutputFormat = "json"
	FormatSummary  OutputFormat = "summary"
)

// Chunk token budget bounds.
const (
	MinChunkTokens     = 64
	MaxChunkTokens     = 2048
	DefaultChunkTokens = 512
)

// ProcessingOptions parameterizes a single document run.
type ProcessingOptions struct {
	Pipeline             Pipeline     `json:"pipeline"`
	Accelerator          Accelerator  `json:"accelerator"`
	OCREnabled           bool         `json:"ocr_enabled"`
	OCRLibrary           OCRLibrary   `json:"ocr_library"`
	OCRLanguages         []string     `json:"ocr_languages"`
	ForceFullPageOCR     bool         `json:"force_full_page_ocr"`
	DoTableStructure     bool         `json:"do_table_structure"`
	DoCodeEnrichment     bool         `json:"do_code_enrichment"`
	DoFormulaEnrichment  bool         `json:"do_formula_enrichment"`
	DoPictureDescription bool         `json:"do_picture_description"`
	OutputFormat         OutputFormat `json:"output_format"`
	ChunkMaxTokens       int          `json:"chunk_max_tokens"`
}

// ocrLanguages maps each OCR library to its accepted language codes.
var ocrLanguages = map[OCRLibrary][]string{
	OCRRapid:     {"en", "ch", "japan", "korean", "german", "french"},
	OCREasy:      {"en", "ar", "zh_sim", "zh_tra", "ja", "ko", "de", "fr", "es", "it", "pt", "ru", "hi", "th", "vi"},
	OCRTesseract: {"eng", "ara", "chi_sim", "chi_tra", "jpn", "kor", "deu", "fra", "spa", "ita", "por", "rus", "hin", "tha", "vie"},
}

// defaultLanguage maps each OCR library to its default language code.
var defaultLanguage = map[OCRLibrary]string{
	OCRRapid:     "en",
	OCREasy:      "en",
	OCRTesseract: "eng",
}

// Defaults returns the canonical default options: standard pipeline, auto
// device, OCR on with easyocr/English, table structure on, markdown output.
func Defaults() ProcessingOptions {
	return ProcessingOptions{
		Pipeline:         PipelineStandard,
		Accelerator:      AcceleratorAuto,
		OCREnabled:       true,
		OCRLibrary:       OCREasy,
		OCRLanguages:     []string{"en"},
		DoTableStructure: true,
		OutputFormat:     FormatMarkdown,
		ChunkMaxTokens:   DefaultChunkTokens,
	}
}

// Decode parses a JSON options payload over the defaults. Unknown fields are
// rejected so client typos surface as errors instead of silent defaults.
func Decode(data []byte) (ProcessingOptions, error) {
	opts := Defaults()
	if len(bytes.TrimSpace(data)) == 0 {
		return opts, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		return opts, apperrors.NewConfigurationError("invalid options payload: %v", err)
	}
	return opts, nil
}

// Validate checks all option values and cross-field constraints.
func (o *ProcessingOptions) Validate() error {
	switch o.Pipeline {
	case PipelineStandard, PipelineVLM:
	default:
		return apperrors.NewConfigurationError("invalid pipeline %q (expected standard or vlm)", o.Pipeline)
	}

	switch o.Accelerator {
	case AcceleratorAuto, AcceleratorCPU, AcceleratorCUDA, AcceleratorMPS:
	default:
		return apperrors.NewConfigurationError("invalid accelerator %q (expected auto, cpu, cuda, or mps)", o.Accelerator)
	}

	vocab, ok := ocrLanguages[o.OCRLibrary]
	if !ok {
		return apperrors.NewConfigurationError("invalid ocr_library %q (expected rapidocr, easyocr, or tesseract)", o.OCRLibrary)
	}

	// Language shape is checked even when OCR is disabled so a later toggle
	// cannot surface a latent misconfiguration.
	if len(o.OCRLanguages) == 0 {
		return apperrors.NewConfigurationError("ocr_languages must not be empty")
	}
	for _, lang := range o.OCRLanguages {
		if !contains(vocab, lang) {
			return apperrors.NewConfigurationError(
				"language %q is not supported by %s (supported: %s)",
				lang, o.OCRLibrary, strings.Join(vocab, ", "))
		}
	}

	switch o.OutputFormat {
	case FormatMarkdown, FormatJSON, FormatSummary:
	default:
		return apperrors.NewConfigurationError("invalid output_format %q (expected markdown, json, or summary)", o.OutputFormat)
	}

	if o.ChunkMaxTokens < MinChunkTokens || o.ChunkMaxTokens > MaxChunkTokens {
		return apperrors.NewConfigurationError(
			"chunk_max_tokens must be between %d and %d, got %d",
			MinChunkTokens, MaxChunkTokens, o.ChunkMaxTokens)
	}

	if o.DoPictureDescription && o.Pipeline != PipelineVLM {
		return apperrors.NewConfigurationError("do_picture_description requires the vlm pipeline")
	}

	return nil
}

// Fingerprint returns a stable key over the session-affecting option subset.
// OutputFormat and ChunkMaxTokens are formatting concerns and excluded, so
// changing them reuses a cached engine session.
func (o *ProcessingOptions) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%t|%s|%s|%t|%t|%t|%t|%t",
		o.Pipeline,
		o.Accelerator,
		o.OCREnabled,
		o.OCRLibrary,
		strings.Join(o.OCRLanguages, ","),
		o.ForceFullPageOCR,
		o.DoTableStructure,
		o.DoCodeEnrichment,
		o.DoFormulaEnrichment,
		o.DoPictureDescription,
	)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// LanguagesFor returns the accepted language codes for an OCR library.
func LanguagesFor(lib OCRLibrary) []string {
	vocab := ocrLanguages[lib]
	out := make([]string, len(vocab))
	copy(out, vocab)
	return out
}

// DefaultLanguageFor returns the default language code for an OCR library.
func DefaultLanguageFor(lib OCRLibrary) string {
	return defaultLanguage[lib]
}

// Libraries returns the known OCR libraries in presentation order.
func Libraries() []OCRLibrary {
	return []OCRLibrary{OCRRapid, OCREasy, OCRTesseract}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
