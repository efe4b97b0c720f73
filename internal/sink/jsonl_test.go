package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	N    int    `json:"n"`
	Name string `json:"name"`
}

func TestNewJSONLines_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"unpaced", Config{}, false},
		{"paced", Config{RecordsPerSecond: 10, Burst: 2}, false},
		{"negative rate", Config{RecordsPerSecond: -1}, true},
		{"negative burst", Config{RecordsPerSecond: 1, Burst: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJSONLines(&bytes.Buffer{}, tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRate)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestJSONLines_Write(t *testing.T) {
	var out bytes.Buffer
	w, err := NewJSONLines(&out, Config{})
	require.NoError(t, err)

	for i := range 3 {
		require.NoError(t, w.Write(context.Background(), row{N: i, Name: "r"}))
	}
	assert.Empty(t, out.String(), "unpaced lines stay buffered until Flush")
	require.NoError(t, w.Flush())
	assert.Equal(t, 3, w.Written())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	for i, l := range lines {
		var got row
		require.NoError(t, json.Unmarshal([]byte(l), &got))
		assert.Equal(t, i, got.N)
	}
}

func TestJSONLines_Paced(t *testing.T) {
	var out bytes.Buffer
	w, err := NewJSONLines(&out, Config{RecordsPerSecond: 200, Burst: 1})
	require.NoError(t, err)

	start := time.Now()
	for i := range 5 {
		require.NoError(t, w.Write(context.Background(), row{N: i}))
		assert.Equal(t, i+1, strings.Count(out.String(), "\n"), "paced lines are flushed as written")
	}
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	assert.Positive(t, w.WaitTime())
}

func TestJSONLines_Cancelled(t *testing.T) {
	w, err := NewJSONLines(&bytes.Buffer{}, Config{RecordsPerSecond: 0.001, Burst: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Write(ctx, row{}))
	cancel()

	assert.Error(t, w.Write(ctx, row{}))
	assert.Equal(t, 1, w.Written())
}

func TestJSONLines_EncodeError(t *testing.T) {
	w, err := NewJSONLines(&bytes.Buffer{}, Config{})
	require.NoError(t, err)
	err = w.Write(context.Background(), map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}
