package options

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/doclab/doclab/internal/errors"
)

func TestDefaultsValidate(t *testing.T) {
	opts := Defaults()
	require.NoError(t, opts.Validate())
	require.Equal(t, PipelineStandard, opts.Pipeline)
	require.Equal(t, AcceleratorAuto, opts.Accelerator)
	require.True(t, opts.OCREnabled)
	require.Equal(t, OCREasy, opts.OCRLibrary)
	require.Equal(t, []string{"en"}, opts.OCRLanguages)
	require.True(t, opts.DoTableStructure)
	require.Equal(t, FormatMarkdown, opts.OutputFormat)
	require.Equal(t, DefaultChunkTokens, opts.ChunkMaxTokens)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ProcessingOptions)
	}{
		{"bad pipeline", func(o *ProcessingOptions) { o.Pipeline = "turbo" }},
		{"bad accelerator", func(o *ProcessingOptions) { o.Accelerator = "tpu" }},
		{"bad ocr library", func(o *ProcessingOptions) { o.OCRLibrary = "paddle" }},
		{"empty languages", func(o *ProcessingOptions) { o.OCRLanguages = nil }},
		{"language outside vocabulary", func(o *ProcessingOptions) { o.OCRLanguages = []string{"klingon"} }},
		{"tesseract code with easyocr", func(o *ProcessingOptions) { o.OCRLanguages = []string{"eng"} }},
		{"bad output format", func(o *ProcessingOptions) { o.OutputFormat = "xml" }},
		{"chunk budget too small", func(o *ProcessingOptions) { o.ChunkMaxTokens = 32 }},
		{"chunk budget too large", func(o *ProcessingOptions) { o.ChunkMaxTokens = 4096 }},
		{"picture description on standard", func(o *ProcessingOptions) { o.DoPictureDescription = true }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := Defaults()
			tc.mutate(&opts)
			err := opts.Validate()
			require.Error(t, err)
			require.Equal(t, apperrors.ErrorConfiguration, apperrors.CodeOf(err))
		})
	}
}

func TestValidateLanguagesCheckedWhenOCRDisabled(t *testing.T) {
	opts := Defaults()
	opts.OCREnabled = false
	opts.OCRLanguages = []string{"klingon"}
	require.Error(t, opts.Validate())
}

func TestValidatePictureDescriptionUnderVLM(t *testing.T) {
	opts := Defaults()
	opts.Pipeline = PipelineVLM
	opts.DoPictureDescription = true
	require.NoError(t, opts.Validate())
}

func TestDecodeOverlaysDefaults(t *testing.T) {
	opts, err := Decode([]byte(`{"output_format": "summary", "ocr_library": "tesseract", "ocr_languages": ["eng"]}`))
	require.NoError(t, err)
	require.Equal(t, FormatSummary, opts.OutputFormat)
	require.Equal(t, OCRTesseract, opts.OCRLibrary)
	// Untouched fields keep their defaults.
	require.Equal(t, PipelineStandard, opts.Pipeline)
	require.Equal(t, DefaultChunkTokens, opts.ChunkMaxTokens)
}

func TestDecodeEmptyPayloadIsDefaults(t *testing.T) {
	opts, err := Decode(nil)
	require.NoError(t, err)
	require.Equal(t, Defaults(), opts)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode([]byte(`{"piplene": "vlm"}`))
	require.Error(t, err)
	require.Equal(t, apperrors.ErrorConfiguration, apperrors.CodeOf(err))
}

func TestFingerprintStable(t *testing.T) {
	a := Defaults()
	b := Defaults()
	require.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintIgnoresFormattingFields(t *testing.T) {
	a := Defaults()
	b := Defaults()
	b.OutputFormat = FormatSummary
	b.ChunkMaxTokens = 1024
	require.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintSensitiveToPipelineFields(t *testing.T) {
	base := Defaults()
	for name, mutate := range map[string]func(*ProcessingOptions){
		"pipeline":     func(o *ProcessingOptions) { o.Pipeline = PipelineVLM },
		"accelerator":  func(o *ProcessingOptions) { o.Accelerator = AcceleratorCPU },
		"ocr toggle":   func(o *ProcessingOptions) { o.OCREnabled = false },
		"ocr library":  func(o *ProcessingOptions) { o.OCRLibrary = OCRRapid },
		"languages":    func(o *ProcessingOptions) { o.OCRLanguages = []string{"en", "ar"} },
		"table toggle": func(o *ProcessingOptions) { o.DoTableStructure = false },
	} {
		opts := Defaults()
		mutate(&opts)
		require.NotEqual(t, base.Fingerprint(), opts.Fingerprint(), name)
	}
}

func TestLanguageVocabularies(t *testing.T) {
	require.Contains(t, LanguagesFor(OCRRapid), "japan")
	require.Contains(t, LanguagesFor(OCREasy), "zh_sim")
	require.Contains(t, LanguagesFor(OCRTesseract), "chi_sim")
	require.Equal(t, "eng", DefaultLanguageFor(OCRTesseract))
	require.Equal(t, "en", DefaultLanguageFor(OCREasy))
}

func TestExtensionSupported(t *testing.T) {
	require.True(t, ExtensionSupported(".pdf"))
	require.True(t, ExtensionSupported("PDF"))
	require.True(t, ExtensionSupported(".JPEG"))
	require.False(t, ExtensionSupported(".exe"))
	require.False(t, ExtensionSupported(""))
}

func TestExtensionOf(t *testing.T) {
	require.Equal(t, ".pdf", ExtensionOf("Report.PDF"))
	require.Equal(t, "", ExtensionOf("README"))
}
