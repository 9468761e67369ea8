package conformance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{}

func (failingSource) Load(context.Context) ([]string, error) {
	return nil, errors.New("backing store unavailable")
}

func TestNewProvider_Static(t *testing.T) {
	conf, err := NewProvider(context.Background(), StaticSource{"rdap_level_0", "fred_1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"rdap_level_0", "fred_1"}, conf.List())
}

func TestNewProvider_EmptyList(t *testing.T) {
	_, err := NewProvider(context.Background(), StaticSource{})
	assert.ErrorIs(t, err, ErrEmptyList)
}

func TestNewProvider_SourceError(t *testing.T) {
	_, err := NewProvider(context.Background(), failingSource{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load conformance list")
}

func TestNewProvider_CopiesSourceList(t *testing.T) {
	src := StaticSource{"rdap_level_0"}
	conf, err := NewProvider(context.Background(), src)
	require.NoError(t, err)

	src[0] = "mutated"
	assert.Equal(t, []string{"rdap_level_0"}, conf.List())
}

func TestFileSource_BareSequence(t *testing.T) {
	path := writeTempFile(t, "- rdap_level_0\n- fred_1\n")

	src := &FileSource{Path: path}
	list, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"rdap_level_0", "fred_1"}, list)
}

func TestFileSource_MappingDocument(t *testing.T) {
	path := writeTempFile(t, "conformance:\n  - rdap_level_0\n")

	src := &FileSource{Path: path}
	list, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"rdap_level_0"}, list)
}

func TestFileSource_MissingFile(t *testing.T) {
	src := &FileSource{Path: filepath.Join(t.TempDir(), "missing.yaml")}
	_, err := src.Load(context.Background())
	assert.Error(t, err)
}

func TestFileSource_MalformedYAML(t *testing.T) {
	path := writeTempFile(t, "conformance: [unclosed\n")

	src := &FileSource{Path: path}
	_, err := src.Load(context.Background())
	assert.Error(t, err)
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conformance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
