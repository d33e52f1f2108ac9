package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocation(t *testing.T) {
	require.NotNil(t, Location)
	require.Equal(t, "Europe/Prague", Location.String())
}

func TestNow(t *testing.T) {
	now := Now()
	require.Equal(t, Location, now.Location())
	require.WithinDuration(t, time.Now(), now, time.Second)
}
