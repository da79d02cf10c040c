package uuid_test

import (
	"strings"
	"testing"

	"github.com/bu-isciii/tierarch/backend/pkg/uuid"
	"github.com/stretchr/testify/require"
)

func TestInProgressName(t *testing.T) {
	a, err := uuid.InProgressName("/archive/SRV1")
	require.NoError(t, err)
	b, err := uuid.InProgressName("/archive/SRV1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(a, "/archive/SRV1.inprogress-"))
	require.Len(t, a, len("/archive/SRV1.inprogress-")+36)
	require.NotEqual(t, a, b)
}
