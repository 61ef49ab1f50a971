package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inatscraper/pkg/metrics"
)

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "1.0 GiB", formatBytes(1<<30))
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "***", maskToken("short"))
	assert.Equal(t, "eyJh...wxyz", maskToken("eyJhbGciOiJIUzUxMiJ9wxyz"))
}

func TestHarvestFlagsOnlyChanged(t *testing.T) {
	t.Cleanup(func() {
		speciesNames = nil
		outputDir = ""
		_ = rootCmd.Flags().Set("num_images", "100")
		rootCmd.Flags().Lookup("num_images").Changed = false
	})

	flags := harvestFlags(rootCmd)
	assert.NotContains(t, flags, "num-images")
	assert.NotContains(t, flags, "species")

	require.NoError(t, rootCmd.Flags().Set("num_images", "20"))
	speciesNames = []string{" Ocean Triggerfish ", "", "Moorish Idol"}
	outputDir = "out"

	flags = harvestFlags(rootCmd)
	assert.Equal(t, 20, flags["num-images"])
	assert.Equal(t, []string{"Ocean Triggerfish", "Moorish Idol"}, flags["species"])
	assert.Equal(t, "out", flags["output"])
}

func TestMetricsMux(t *testing.T) {
	m, err := metrics.NewHarvest()
	require.NoError(t, err)
	m.IncAPIRequests()

	srv := httptest.NewServer(metricsMux(m))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/other")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}
