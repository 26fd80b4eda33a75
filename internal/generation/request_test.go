package generation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testAttachment() *Attachment {
	return &Attachment{Data: []byte{0x89, 0x50, 0x4e, 0x47}, MIMEType: "image/png"}
}

func TestNewChatRequestTiers(t *testing.T) {
	fast, err := NewChatRequest("hello", ChatModelFast, nil)
	require.NoError(t, err)
	require.False(t, fast.SearchGrounding, "fast tier must omit the search tool")

	smart, err := NewChatRequest("hello", ChatModelSmart, nil)
	require.NoError(t, err)
	require.True(t, smart.SearchGrounding, "smart tier must enable the search tool")
}

func TestNewChatRequestAttachmentOnly(t *testing.T) {
	req, err := NewChatRequest("", ChatModelFast, testAttachment())
	require.NoError(t, err)
	require.NotNil(t, req.Attachment)
}

func TestNewChatRequestRejectsEmpty(t *testing.T) {
	_, err := NewChatRequest("   ", ChatModelFast, nil)
	require.Error(t, err)
	require.True(t, IsValidationError(err))
}

func TestNewImageRequestDefaults(t *testing.T) {
	req, err := NewImageRequest("a red fox", "", Shape{})
	require.NoError(t, err)
	require.Equal(t, ImageModelPro, req.Model)
	require.Equal(t, "1:1", req.Shape.AspectRatio)
	require.Equal(t, "1K", req.Shape.ImageSize)
}

func TestNewImageRequestRejectsEmptyPrompt(t *testing.T) {
	_, err := NewImageRequest("", ImageModelFast, Shape{})
	require.True(t, IsValidationError(err))
}

func TestNewFaceSwapRequestRequiresBothAttachments(t *testing.T) {
	face := testAttachment()
	target := testAttachment()

	cases := []struct {
		name   string
		face   *Attachment
		target *Attachment
		valid  bool
	}{
		{name: "both present", face: face, target: target, valid: true},
		{name: "missing target", face: face, target: nil, valid: false},
		{name: "missing face", face: nil, target: target, valid: false},
		{name: "missing both", face: nil, target: nil, valid: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := NewFaceSwapRequest(tc.face, tc.target, "")
			if !tc.valid {
				require.True(t, IsValidationError(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, ImageModelPro, req.Model)
			require.Equal(t, "1:1", req.Shape.AspectRatio)
		})
	}
}

func TestNewFaceSwapRequestTemplate(t *testing.T) {
	req, err := NewFaceSwapRequest(testAttachment(), testAttachment(), "keep the sunglasses")
	require.NoError(t, err)
	require.Contains(t, req.Prompt, "image 1")
	require.Contains(t, req.Prompt, "image 2")
	require.Contains(t, req.Prompt, "keep the sunglasses")

	// Prompt text is optional narrative on top of the mandatory images.
	bare, err := NewFaceSwapRequest(testAttachment(), testAttachment(), "")
	require.NoError(t, err)
	require.Contains(t, bare.Prompt, "Face Swap")
}

func TestNewVideoRequestDefaults(t *testing.T) {
	req, err := NewVideoRequest("sunset", nil, Shape{})
	require.NoError(t, err)
	require.Equal(t, VideoModelFast, req.Model)
	require.Equal(t, "16:9", req.Shape.AspectRatio)
	require.Equal(t, "720p", req.Shape.Resolution)
}

func TestNewVideoRequestSeedImageOnly(t *testing.T) {
	req, err := NewVideoRequest("", testAttachment(), Shape{})
	require.NoError(t, err)
	require.Equal(t, "Cinematic shot", req.Prompt)
}

func TestNewVideoRequestRejectsEmpty(t *testing.T) {
	_, err := NewVideoRequest("", nil, Shape{})
	require.True(t, IsValidationError(err))
}
