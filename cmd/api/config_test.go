package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tempFile, err := os.CreateTemp(t.TempDir(), "config*.env")
	require.NoError(t, err)

	configData := []byte(`
PORT=:8080
ENVIRONMENT=development
VERSION=1.0.0
BLOB_DIR=/var/lib/blur/blobs
POSTGRES_HOST=localhost
POSTGRES_PORT=5432
POSTGRES_USER=testuser
POSTGRES_PASSWORD=testpassword
POSTGRES_DB=testdb
MAIL_HOST=smtp.example.com
MAIL_PORT=587
MAIL_USER=testuser@example.com
MAIL_PASSWORD=testpassword
MAIL_SENDER=sender@example.com
MAIL_MODERATOR=moderator@example.com
RABBITMQ_HOST=rabbitmq.example.com
RABBITMQ_PORT=5672
RABBITMQ_USER=testuser
RABBITMQ_PASSWORD=testpassword
LIMITER_RPS=2
LIMITER_BURST=4
LIMITER_ENABLED=true
`)
	_, err = tempFile.Write(configData)
	require.NoError(t, err)
	require.NoError(t, tempFile.Close())

	config, err := loadConfig(tempFile.Name())
	require.NoError(t, err)

	assert.Equal(t, ":8080", config.Port)
	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "1.0.0", config.Version)
	assert.Equal(t, "/var/lib/blur/blobs", config.BlobDir)
	assert.Equal(t, "localhost", config.DB.Host)
	assert.Equal(t, "5432", config.DB.Port)
	assert.Equal(t, "testuser", config.DB.User)
	assert.Equal(t, "testpassword", config.DB.Password)
	assert.Equal(t, "testdb", config.DB.Name)
	assert.Equal(t, "smtp.example.com", config.Mail.Host)
	assert.Equal(t, 587, config.Mail.Port)
	assert.Equal(t, "testuser@example.com", config.Mail.User)
	assert.Equal(t, "testpassword", config.Mail.Password)
	assert.Equal(t, "sender@example.com", config.Mail.Sender)
	assert.Equal(t, "moderator@example.com", config.Mail.Moderator)
	assert.Equal(t, "rabbitmq.example.com", config.RabbitMQ.Host)
	assert.Equal(t, "5672", config.RabbitMQ.Port)
	assert.Equal(t, "testuser", config.RabbitMQ.User)
	assert.Equal(t, "testpassword", config.RabbitMQ.Password)
	assert.Equal(t, float64(2), config.Limiter.RPS)
	assert.Equal(t, 4, config.Limiter.Burst)
	assert.True(t, config.Limiter.Enabled)
}
