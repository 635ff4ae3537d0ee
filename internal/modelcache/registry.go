package modelcache

// ModelKind distinguishes where a model's artifacts live on disk.
type ModelKind string

const (
	KindHuggingFace ModelKind = "huggingface"
	KindEasyOCR     ModelKind = "easyocr"
	KindRapidOCR    ModelKind = "rapidocr"
	KindTesseract   ModelKind = "tesseract"
)

// ModelInfo describes one known model artifact.
type ModelInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SizeMB      int       `json:"size_mb"`
	Required    bool      `json:"required"`
	Kind        ModelKind `json:"kind"`
	RepoID      string    `json:"repo_id,omitempty"`
}

// registry lists every model the pipelines can need, in presentation order.
var registry = []ModelInfo{
	{
		ID:          "layout-heron",
		Name:        "Layout Model (Heron)",
		Description: "Page layout analysis for the standard pipeline",
		SizeMB:      164,
		Required:    true,
		Kind:        KindHuggingFace,
		RepoID:      "ds4sd/docling-layout-heron",
	},
	{
		ID:          "docling-models",
		Name:        "Docling Models Bundle",
		Description: "TableFormer and supporting models",
		SizeMB:      342,
		Required:    true,
		Kind:        KindHuggingFace,
		RepoID:      "ds4sd/docling-models",
	},
	{
		ID:          "granite-vision",
		Name:        "Granite Vision",
		Description: "Vision-language model for the vlm pipeline and picture description",
		SizeMB:      4800,
		Required:    false,
		Kind:        KindHuggingFace,
		RepoID:      "ibm-granite/granite-vision-3.1-2b-preview",
	},
	{
		ID:          "bge-tokenizer",
		Name:        "BGE Tokenizer",
		Description: "Tokenizer used for chunk sizing",
		SizeMB:      1,
		Required:    true,
		Kind:        KindHuggingFace,
		RepoID:      "BAAI/bge-small-en-v1.5",
	},
	{
		ID:          "easyocr-en",
		Name:        "EasyOCR English",
		Description: "EasyOCR detection and English recognition models",
		SizeMB:      95,
		Required:    false,
		Kind:        KindEasyOCR,
	},
	{
		ID:          "easyocr-ar",
		Name:        "EasyOCR Arabic",
		Description: "EasyOCR Arabic recognition model",
		SizeMB:      60,
		Required:    false,
		Kind:        KindEasyOCR,
	},
	{
		ID:          "rapidocr",
		Name:        "RapidOCR",
		Description: "RapidOCR ONNX detection and recognition models",
		SizeMB:      50,
		Required:    false,
		Kind:        KindRapidOCR,
	},
	{
		ID:          "tesseract-langs",
		Name:        "Tesseract Language Packs",
		Description: "Installed tesseract traineddata files",
		SizeMB:      30,
		Required:    false,
		Kind:        KindTesseract,
	},
}

// Registry returns a copy of the known-model list.
func Registry() []ModelInfo {
	out := make([]ModelInfo, len(registry))
	copy(out, registry)
	return out
}

// Lookup returns the registry entry for id.
func Lookup(id string) (ModelInfo, bool) {
	for _, m := range registry {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}
