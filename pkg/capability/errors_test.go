package capability

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsRejected(t *testing.T) {
	require.True(t, IsRejected(Rejected("account closed", nil)))
	require.False(t, IsRejected(Transient("gateway timeout", nil)))

	// Plain errors from the transport count as transient.
	require.False(t, IsRejected(errors.New("connection refused")))
	require.False(t, IsRejected(nil))

	// Classification survives wrapping.
	wrapped := fmt.Errorf("payout failed: %w", Rejected("account closed", nil))
	require.True(t, IsRejected(wrapped))
}

func TestClassifyStatus(t *testing.T) {
	require.Equal(t, KindTransient, ClassifyStatus(500))
	require.Equal(t, KindTransient, ClassifyStatus(503))
	require.Equal(t, KindTransient, ClassifyStatus(429))

	require.Equal(t, KindRejected, ClassifyStatus(400))
	require.Equal(t, KindRejected, ClassifyStatus(402))
	require.Equal(t, KindRejected, ClassifyStatus(422))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("tls handshake timeout")
	err := Transient("gateway unreachable", cause)
	require.ErrorIs(t, err, cause)
}
