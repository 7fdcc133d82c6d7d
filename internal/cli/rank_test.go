package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carmatch/internal/model"
)

func rankCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "rank"}
	addRankFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestRankPreferences(t *testing.T) {
	prefs := rankPreferences(rankCmd(t, "--price-max", "800000", "--make", " Toyota ", "--body", "SUV", "--transmission", "at"))

	assert.Nil(t, prefs.PriceMin)
	require.NotNil(t, prefs.PriceMax)
	assert.Equal(t, 800000.0, *prefs.PriceMax)
	assert.Equal(t, "toyota", prefs.Make)
	assert.Equal(t, "suv", prefs.Body)
	assert.Equal(t, "AT", prefs.Transmission)
	assert.Equal(t, model.StageCollecting, prefs.Stage)
}

func TestRankPreferences_SwapsInvertedBounds(t *testing.T) {
	prefs := rankPreferences(rankCmd(t, "--price-min", "900000", "--price-max", "500000"))

	require.NotNil(t, prefs.PriceMin)
	require.NotNil(t, prefs.PriceMax)
	assert.Equal(t, 500000.0, *prefs.PriceMin)
	assert.Equal(t, 900000.0, *prefs.PriceMax)
}

func TestRankPreferences_NoConstraints(t *testing.T) {
	prefs := rankPreferences(rankCmd(t))
	assert.False(t, prefs.HasPrice())
	assert.Empty(t, prefs.Make)
	assert.Empty(t, prefs.Body)
}

func TestRootRegistersCommands(t *testing.T) {
	for _, name := range []string{"chat", "rank", "index"} {
		cmd, _, err := RootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
