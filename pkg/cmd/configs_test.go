package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecrets(t *testing.T) {
	tree := map[string]any{
		"DB": map[string]any{"Host": "localhost", "Password": "hunter2", "DSN": ""},
		"Blob": map[string]any{
			"S3": map[string]any{"AccessKey": "AKIA", "SecretKey": "s3cr3t"},
		},
		"MQ": map[string]any{"NATS": map[string]any{"JWT": "eyJ", "NKey": "SU"}},
	}

	maskSecrets(tree)

	db := tree["DB"].(map[string]any)
	assert.Equal(t, "localhost", db["Host"])
	assert.Equal(t, "******", db["Password"])
	assert.Equal(t, "", db["DSN"])

	s3 := tree["Blob"].(map[string]any)["S3"].(map[string]any)
	assert.Equal(t, "AKIA", s3["AccessKey"])
	assert.Equal(t, "******", s3["SecretKey"])

	nats := tree["MQ"].(map[string]any)["NATS"].(map[string]any)
	assert.Equal(t, "******", nats["JWT"])
	assert.Equal(t, "******", nats["NKey"])
}
