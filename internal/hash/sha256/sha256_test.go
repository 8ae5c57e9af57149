package sha256

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDigestMatchesSum(t *testing.T) {
	t.Parallel()

	body := "series_id\tyear\tperiod\tvalue\tfootnote_codes\n"
	d := New()
	n, err := io.Copy(d, strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, int64(len(body)), n)
	require.Equal(t, int64(len(body)), d.Size())
	require.Equal(t, Sum([]byte(body)), d.Hex())
}

func TestSumKnownValue(t *testing.T) {
	t.Parallel()

	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))
}
