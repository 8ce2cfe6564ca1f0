package llm

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeImageFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fridge.png")
	require.NoError(t, os.WriteFile(path, []byte("not-really-a-png"), 0o644))

	uri, err := EncodeImageFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("not-really-a-png")), uri)

	_, err = EncodeImageFile(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)
}

func TestSplitDataURI(t *testing.T) {
	tests := []struct {
		name         string
		uri          string
		expectedMIME string
		expectedData string
	}{
		{
			name:         "png data uri",
			uri:          "data:image/png;base64,AAAA",
			expectedMIME: "image/png",
			expectedData: "AAAA",
		},
		{
			name:         "raw base64 defaults to jpeg",
			uri:          "AAAA",
			expectedMIME: "image/jpeg",
			expectedData: "AAAA",
		},
		{
			name:         "data prefix without encoding marker",
			uri:          "data:BBBB",
			expectedMIME: "image/jpeg",
			expectedData: "BBBB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, data := SplitDataURI(tt.uri)
			assert.Equal(t, tt.expectedMIME, mime)
			assert.Equal(t, tt.expectedData, data)
		})
	}
}
