package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/mcdonaldj/genbak/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "info", Format: "json"}, &buf))

	log.WithField("generation", 2).Info("created base generation")
	log.Debug("hidden")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "created base generation", entry["msg"])
	require.Equal(t, float64(2), entry["generation"])
	require.Equal(t, log.InfoLevel, log.GetLevel())
}

func TestInitRejectsUnknownValues(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, Init(Config{Level: "loud", Format: "text"}, &buf))
	require.Error(t, Init(Config{Level: "info", Format: "xml"}, &buf))
}

func TestFromConfig(t *testing.T) {
	require.Equal(t, Config{Level: "warn", Format: "text"}, FromConfig(config.DefaultConfig()))
}
