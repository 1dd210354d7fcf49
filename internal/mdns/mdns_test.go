package mdns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopAdvertiserNeverErrors(t *testing.T) {
	var a NoopAdvertiser
	err := a.Start(context.Background(), TXT{ID: "dev-1", Name: "opensentry"})
	assert.NoError(t, err)
	assert.NotPanics(t, a.Stop)
}
