package storage

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStore(t *testing.T) *Store {
	t.Helper()
	s := New(afero.NewMemMapFs(), "uploads", "outputs")
	require.NoError(t, s.Init())
	return s
}

func TestSaveUploadWritesSanitizedName(t *testing.T) {
	s := newMemStore(t)

	path, err := s.SaveUpload("../../etc/passwd writeup.docx", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "uploads/passwd_writeup.docx", path)

	data, err := afero.ReadFile(s.fs, path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestSaveUploadRejectsEmptyName(t *testing.T) {
	s := newMemStore(t)
	_, err := s.SaveUpload("....", strings.NewReader("data"))
	assert.Error(t, err)
}

func TestReadUploadRoundTrip(t *testing.T) {
	s := newMemStore(t)
	path, err := s.SaveUpload("doc.docx", strings.NewReader("payload"))
	require.NoError(t, err)

	data, err := s.ReadUpload(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestReadUploadGuardsDirectory(t *testing.T) {
	s := newMemStore(t)
	_, err := s.ReadUpload("outputs/doc.docx")
	assert.Error(t, err)
}

func TestOpenOutputRejectsTraversal(t *testing.T) {
	s := newMemStore(t)

	for _, name := range []string{"../secret.docx", "a/b.docx", ".", ".."} {
		_, err := s.OpenOutput(name)
		assert.Error(t, err, name)
	}
}

func TestOpenOutputReadsGeneratedFile(t *testing.T) {
	s := newMemStore(t)
	require.NoError(t, afero.WriteFile(s.fs, s.OutputPath("reviewed.docx"), []byte("out"), 0o644))

	f, err := s.OpenOutput("reviewed.docx")
	require.NoError(t, err)
	defer f.Close()

	data, err := afero.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "out", string(data))
}

func TestRemoveUploadGuardsDirectory(t *testing.T) {
	s := newMemStore(t)
	path, err := s.SaveUpload("doc.docx", strings.NewReader("data"))
	require.NoError(t, err)

	assert.Error(t, s.RemoveUpload("outputs/doc.docx"))
	assert.NoError(t, s.RemoveUpload(path))

	_, err = s.fs.Stat(path)
	assert.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"writeup.docx", "writeup.docx"},
		{"my writeup (final).docx", "my_writeup_final_.docx"},
		{"../../evil.docx", "evil.docx"},
		{`C:\Users\me\doc.docx`, "doc.docx"},
		{"....", ""},
		{"___", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizeFilename(tc.in), tc.in)
	}
}
