package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherBackoff(t *testing.T) {
	d := &AuditDispatcher{InitialBackoff: 5 * time.Second}

	assert.Equal(t, 5*time.Second, d.backoff(1))
	assert.Equal(t, 10*time.Second, d.backoff(2))
	assert.Equal(t, 40*time.Second, d.backoff(4))
	assert.Equal(t, 10*time.Minute, d.backoff(12))
	assert.Equal(t, 10*time.Minute, d.backoff(40))
}
