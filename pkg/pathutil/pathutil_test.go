package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		name  string
		elems []string
		want  string
	}{
		{"Empty", []string{"", ""}, "/"},
		{"No elements", nil, "/"},
		{"Root with empty", []string{"/data", ""}, "/data"},
		{"Simple", []string{"/data", "chunks"}, "/data/chunks"},
		{"No doubled separators", []string{"/data/", "/chunks/"}, "/data/chunks"},
		{"Many slashes", []string{"/data//", "//a///b"}, "/data/a/b"},
		{"Relative", []string{"folder", "id"}, "folder/id"},
		{"Root only", []string{"/"}, "/"},
		{"Root and id", []string{"/", "abc"}, "/abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Join(tt.elems...))
		})
	}
}

func TestFolder(t *testing.T) {
	assert.Equal(t, "/", Folder(""))
	assert.Equal(t, "/", Folder("/"))
	assert.Equal(t, "/a/b", Folder("a/b"))
	assert.Equal(t, "/a", Folder("/a/"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"/a/b", false},
		{"", false},
		{"a/.../b", false},
		{"../etc/passwd", true},
		{"/a/../../b", true},
		{"/a/..", true},
		{`a\..\b`, true},
		{"a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	r, err := NewResolver("/data/chunks/")
	require.NoError(t, err)
	assert.Equal(t, "/data/chunks", r.Root())

	tests := []struct {
		name    string
		logical string
		want    string
		wantErr bool
	}{
		{"Absolute logical path", "/layer/abc", "/data/chunks/layer/abc", false},
		{"Relative logical path", "layer/abc", "/data/chunks/layer/abc", false},
		{"Empty resolves to root", "", "/data/chunks", false},
		{"Slash resolves to root", "/", "/data/chunks", false},
		{"Dot segments are cleaned", "/a/./b", "/data/chunks/a/b", false},
		{"Traversal rejected", "/../secret", "", true},
		{"Nested traversal rejected", "a/b/../../../x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.logical)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewResolver_Defaults(t *testing.T) {
	r, err := NewResolver("")
	require.NoError(t, err)
	assert.Equal(t, "/", r.Root())

	got, err := r.Resolve("/abc")
	require.NoError(t, err)
	assert.Equal(t, "/abc", got)

	_, err = NewResolver("/data/../etc")
	assert.ErrorIs(t, err, ErrInvalidPath)
}
