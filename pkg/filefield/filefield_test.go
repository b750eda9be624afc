package filefield

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildHelpText(t *testing.T) {
	assert.Equal(t, "Allowed file types: ['.jpg', '.jpeg', '.png'] | Max file size in MB: [2]",
		BuildHelpText([]string{".jpg", ".jpeg", ".png"}, 2))
	assert.Equal(t, "Allowed file types: [Any] | Max file size in MB: [2]", BuildHelpText(nil, 2))
	assert.Equal(t, "Allowed file types: ['.jpg', '.jpeg', '.png'] | Max file size in MB: [None]",
		BuildHelpText([]string{".jpg", ".jpeg", ".png"}, 0))
	assert.Equal(t, "Allowed file types: [Any] | Max file size in MB: [None]", BuildHelpText(nil, 0))
}

func TestValidateRoundTrip(t *testing.T) {
	helpText := BuildHelpText([]string{".jpg", ".jpeg"}, 2)

	ok := Validate(helpText, "photo.jpg", 2*1024)
	assert.True(t, ok.IsValidType)
	assert.True(t, ok.IsValidSize)
	assert.True(t, ok.Valid())

	boundary := Validate(helpText, "photo.JPEG", 2*1024*1024)
	assert.True(t, boundary.Valid())

	tooBig := Validate(helpText, "photo.jpg", 2*1024*1024+1)
	assert.True(t, tooBig.IsValidType)
	assert.False(t, tooBig.IsValidSize)

	wrongType := Validate(helpText, "photo.png", 1024)
	assert.False(t, wrongType.IsValidType)
	assert.True(t, wrongType.IsValidSize)

	noExt := Validate(helpText, "photo", 1024)
	assert.False(t, noExt.IsValidType)
}

func TestValidateSentinels(t *testing.T) {
	anyType := Validate(BuildHelpText(nil, 1), "archive.tar.gz", 512)
	assert.True(t, anyType.Valid())

	noLimit := Validate(BuildHelpText([]string{".pdf"}, 0), "big.pdf", 1<<40)
	assert.True(t, noLimit.Valid())

	assert.True(t, Validate("", "anything", 1<<40).Valid())
	assert.False(t, Validate("garbage", "a.pdf", 1).Valid())
}
