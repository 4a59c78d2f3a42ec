package log_test

import (
	"bytes"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/casevault/pkg/configs"
	"github.com/yeisme/casevault/pkg/log"
)

func TestWritersHonourFormatAndFile(t *testing.T) {
	assert.Len(t, log.Writers(configs.LogConfig{Format: "json"}), 1)
	assert.Len(t, log.Writers(configs.LogConfig{Format: "console", EnableFile: true, FilePath: t.TempDir() + "/a.log"}), 2)
	assert.Len(t, log.Writers(configs.LogConfig{EnableFile: true}), 1)
}

func TestGinWriterPromotesWarnings(t *testing.T) {
	var buf bytes.Buffer

	l := log.New(&buf)
	w := log.NewGinWriter(&l, zerolog.InfoLevel)

	_, err := w.Write([]byte("[WARNING] Running in \"debug\" mode.\n"))
	require.NoError(t, err)

	n, err := w.Write([]byte("   \n"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	var event map[string]any
	require.NoError(t, sonic.Unmarshal(bytes.TrimSpace(buf.Bytes()), &event))
	assert.Equal(t, "warn", event["level"])
	assert.Equal(t, "gin", event["source"])
	assert.Contains(t, event["message"], "debug")
}
