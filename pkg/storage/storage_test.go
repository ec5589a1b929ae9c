package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowed(t *testing.T) {
	for _, name := range []string{"a.png", "b.JPG", "c.jpeg", "d.gif", "report.pdf", "plan.doc", "plan.DOCX"} {
		assert.True(t, Allowed(name), name)
	}
	for _, name := range []string{"run.exe", "archive.zip", "noext", "pic.webp"} {
		assert.False(t, Allowed(name), name)
	}
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "passwd", SafeName("../../etc/passwd"))
	assert.Equal(t, "my_report.pdf", SafeName("my report.pdf"))
	assert.Equal(t, "file", SafeName("..."))
	assert.Equal(t, "x.png", SafeName(`C:\tmp\x.png`))
}

func TestExtractPublicID(t *testing.T) {
	id, typ := extractPublicID("https://res.cloudinary.com/demo/image/upload/v1712/sparkvest/projects/123-cover.webp")
	assert.Equal(t, "sparkvest/projects/123-cover", id)
	assert.Equal(t, "image", typ)

	id, typ = extractPublicID("https://res.cloudinary.com/demo/raw/upload/v1712/sparkvest/certificates/stake.pdf")
	assert.Equal(t, "sparkvest/certificates/stake.pdf", id)
	assert.Equal(t, "raw", typ)

	id, _ = extractPublicID("https://example.com/nothing")
	assert.Empty(t, id)
}

func TestLocalStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "http://localhost:8080/")
	require.NoError(t, err)

	url, err := s.Upload(context.Background(), strings.NewReader("%PDF-1.4"), "certificates", "stake_certificate_a_b_c.pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/static/certificates/stake_certificate_a_b_c.pdf", url)

	data, err := os.ReadFile(filepath.Join(dir, "certificates", "stake_certificate_a_b_c.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, s.Delete(context.Background(), url))
	_, err = os.Stat(filepath.Join(dir, "certificates", "stake_certificate_a_b_c.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageKeepsUploadsInsideDir(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "http://host")
	require.NoError(t, err)

	url, err := s.Upload(context.Background(), strings.NewReader("x"), "../../escape", "cover.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://host/static/escape/"))
}
