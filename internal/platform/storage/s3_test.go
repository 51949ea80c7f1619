package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_New_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func Test_New_PublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "explicit_base",
			cfg:  Config{Bucket: "bookio", PublicBaseURL: "https://cdn.bookio.app/"},
			want: "https://cdn.bookio.app",
		},
		{
			name: "minio_endpoint",
			cfg:  Config{Bucket: "bookio", Endpoint: "http://localhost:9000", PathStyle: true},
			want: "http://localhost:9000/bookio",
		},
		{
			name: "aws_default",
			cfg:  Config{Bucket: "bookio", Region: "sa-east-1"},
			want: "https://bookio.s3.sa-east-1.amazonaws.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(context.Background(), tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.base)
		})
	}
}

func Test_extFor(t *testing.T) {
	assert.Equal(t, ".jpg", extFor("image/jpeg"))
	assert.Equal(t, ".png", extFor("image/png"))
	assert.Equal(t, ".webp", extFor("image/webp"))
	assert.Equal(t, "", extFor("application/pdf"))
}
