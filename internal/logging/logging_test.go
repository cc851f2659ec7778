package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_ValidLevel(t *testing.T) {
	logger, err := New("debug")
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("not-a-level")
	require.Error(t, err)
}
