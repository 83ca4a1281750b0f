package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationUsesEmbeddedZones(t *testing.T) {
	cfg := &Config{Gate: GateConfig{Timezone: "Asia/Kuala_Lumpur"}}
	loc := cfg.Location()
	require.Equal(t, "Asia/Kuala_Lumpur", loc.String())

	_, offset := time.Date(2025, 1, 2, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 8*60*60, offset)
}

func TestLocationWarnsOnUnknownZone(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.Default()
	logger.SetDefault(logger.New(&buf, "info"))
	t.Cleanup(func() { logger.SetDefault(prev) })

	cfg := &Config{Gate: GateConfig{Timezone: "Mars/Olympus_Mons"}}
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Contains(t, buf.String(), "Mars/Olympus_Mons")
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "")
	assert.Contains(t, Load().Gate.TrustedProxies, "10.0.0.0/8")

	t.Setenv("TRUSTED_PROXIES", " 10.1.2.3 , fd00::/8 ")
	assert.Equal(t, []string{"10.1.2.3", "fd00::/8"}, Load().Gate.TrustedProxies)
}
