package uuid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	id := New()
	assert.True(t, IsUUIDv7(id))

	parsed, err := Parse(NewString())
	require.NoError(t, err)
	assert.True(t, IsUUIDv7(parsed))

	_, err = Parse("not-a-uuid")
	assert.Error(t, err)
}

func TestTimestampIsOrdered(t *testing.T) {
	before := time.Now().Add(-time.Second)
	a := New()
	time.Sleep(2 * time.Millisecond)
	b := New()

	assert.True(t, Timestamp(a).After(before))
	assert.True(t, Timestamp(b).After(Timestamp(a)))
	assert.Less(t, a.String(), b.String())
}
