package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidUploadStatus(t *testing.T) {
	assert.True(t, IsValidUploadStatus(UploadStatusPending))
	assert.True(t, IsValidUploadStatus(UploadStatusCompleted))
	assert.True(t, IsValidUploadStatus(UploadStatusFailed))
	assert.False(t, IsValidUploadStatus("uploading"))
	assert.False(t, IsValidUploadStatus(""))
	assert.False(t, IsValidUploadStatus("COMPLETED"))
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{UploadStatusPending, UploadStatusCompleted, true},
		{UploadStatusPending, UploadStatusFailed, true},
		{UploadStatusPending, UploadStatusPending, true},
		{UploadStatusCompleted, UploadStatusCompleted, true},
		{UploadStatusFailed, UploadStatusFailed, true},
		{UploadStatusCompleted, UploadStatusPending, false},
		{UploadStatusCompleted, UploadStatusFailed, false},
		{UploadStatusFailed, UploadStatusPending, false},
		{UploadStatusFailed, UploadStatusCompleted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransitionTo(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
