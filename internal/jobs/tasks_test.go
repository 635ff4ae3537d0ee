package jobs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doclab/doclab/internal/options"
)

func TestProcessTaskRoundTrip(t *testing.T) {
	payload := &ProcessPayload{
		JobID:    "job-1",
		Filename: "doc.pdf",
		FileData: "JVBERi0=",
		Options:  []byte(`{"output_format": "summary"}`),
	}

	task, err := NewProcessTask(payload)
	require.NoError(t, err)
	require.Equal(t, TypeProcessDocument, task.Type())

	decoded, err := DecodeProcessPayload(task)
	require.NoError(t, err)
	require.Equal(t, payload.JobID, decoded.JobID)
	require.Equal(t, payload.Filename, decoded.Filename)
	require.Equal(t, payload.FileData, decoded.FileData)

	opts, err := options.Decode(decoded.Options)
	require.NoError(t, err)
	require.Equal(t, options.FormatSummary, opts.OutputFormat)
}
