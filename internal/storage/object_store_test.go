package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devcontainerDuy/thegioicuongphim-sub000/internal/config"
)

func TestObjectURL(t *testing.T) {
	store, err := NewObjectStore(config.StorageConfig{
		Endpoint:      "https://cdn.example.com",
		BucketAvatars: "avatars",
		Region:        "us-east-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/avatars/users/u1/a.png", store.ObjectURL("users/u1/a.png"))
}

func TestRemoveAvatar_IgnoresForeignURL(t *testing.T) {
	store, err := NewObjectStore(config.StorageConfig{
		Endpoint:      "127.0.0.1:9000",
		BucketAvatars: "avatars",
	})
	require.NoError(t, err)

	assert.NoError(t, store.RemoveAvatar(context.Background(), "https://elsewhere.example.com/a.png"))
}
