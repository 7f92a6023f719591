package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8080/view?hash=%23event%3D42", ViewURL("http://127.0.0.1:8080/", "#event=42"))
	assert.Equal(t, "http://x/view?hash=", ViewURL("http://x/", ""))
}

func TestCaptureRequiresTarget(t *testing.T) {
	_, err := PNG(context.Background(), Options{})
	assert.Error(t, err)
	assert.Error(t, WritePNG(context.Background(), Options{URL: "http://x/"}, ""))
}
