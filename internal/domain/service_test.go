package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, VariantMega, Classify("https://mega.nz/file/B3kg2Z#aEOZ5e6OJYV-H8aKFY8n"))
	assert.Equal(t, VariantMega, Classify("https://mega.co.nz/folder/abc#key"))
	assert.Equal(t, VariantVideo, Classify("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.Equal(t, VariantVideo, Classify("https://youtu.be/dQw4w9WgXcQ"))
	assert.Equal(t, VariantMediaFire, Classify("https://www.mediafire.com/file/abc123/archive.zip/file"))
	assert.Equal(t, VariantMediaFire, Classify("https://download1234.mediafire.com/xyz/archive.zip"))
	assert.Equal(t, VariantGoogleDrive, Classify("https://drive.google.com/file/d/1AbC/view"))
	assert.Equal(t, VariantGoogleDrive, Classify("https://docs.google.com/uc?export=download&id=1AbC"))
	assert.Equal(t, VariantUnknown, Classify("https://example.com/some/file.bin"))
	assert.Equal(t, VariantUnknown, Classify("not a url"))
	assert.Equal(t, VariantUnknown, Classify(""))
}

func TestClassify_CaseAndWhitespace(t *testing.T) {
	assert.Equal(t, VariantMega, Classify("  https://MEGA.NZ/file/xyz#key  "))
	assert.Equal(t, VariantMediaFire, Classify("https://WWW.MediaFire.COM/file/abc/x"))
}

func TestClassify_IsPure(t *testing.T) {
	url := "https://mega.nz/file/B3kg2Z#aEOZ5e6OJYV-H8aKFY8n"
	first := Classify(url)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(url))
	}
}

func TestValidateVariant(t *testing.T) {
	assert.True(t, ValidateVariant(VariantMega))
	assert.True(t, ValidateVariant(VariantVideo))
	assert.True(t, ValidateVariant(VariantMediaFire))
	assert.True(t, ValidateVariant(VariantGoogleDrive))
	assert.True(t, ValidateVariant(VariantUnknown))
	assert.False(t, ValidateVariant(ServiceVariant("dropbox")))
}
