package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	c := C()
	assert.Equal(t, "0.0.0.0", c.Host)
	assert.Equal(t, "8000", c.Port)
	assert.Equal(t, "deeplabv3", c.ModelFamily)
	assert.Equal(t, 15, c.PersonClassIndex)
	assert.Equal(t, float32(0.5), c.PersonThreshold)
	assert.False(t, c.KeepIntermediates)
}
