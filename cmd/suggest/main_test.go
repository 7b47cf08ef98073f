package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carpoolapp/backend/internal/adapters/providers/geocoding"
	"github.com/carpoolapp/backend/internal/application/services"
)

func TestParseCommand(t *testing.T) {
	tt := []struct {
		line    string
		want    command
		wantErr bool
	}{
		{line: "Chen", want: command{kind: commandQuery, text: "Chen"}},
		{line: "", want: command{kind: commandQuery, text: ""}},
		{line: ":select 2", want: command{kind: commandSelect, index: 1}},
		{line: ":select", wantErr: true},
		{line: ":select 0", wantErr: true},
		{line: ":select two", wantErr: true},
		{line: ":clear", want: command{kind: commandClear}},
		{line: " :quit ", want: command{kind: commandQuit}},
		{line: ":bogus", wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.line, func(t *testing.T) {
			got, err := parseCommand(tc.line)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// syncBuffer lets the update printer and the test read the output concurrently
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRun_SearchAndSelect(t *testing.T) {
	opts := services.DefaultLocationSearchOptions()
	opts.MinInterval = 0
	svc, err := services.NewLocationSearchService(geocoding.NewMockGeocodingProvider(), opts)
	require.NoError(t, err)
	suggester := services.NewLocationSuggester(svc, services.SuggesterOptions{Debounce: 10 * time.Millisecond, MinQueryLength: 3})

	out := &syncBuffer{}
	// an open pipe keeps run waiting for input while the debounce elapses
	lines := make(chan string)
	done := make(chan error, 1)
	reader, writer := io.Pipe()
	go func() { done <- run(context.Background(), reader, out, suggester) }()
	go func() {
		for line := range lines {
			_, _ = writer.Write([]byte(line + "\n"))
		}
		_ = writer.Close()
	}()

	lines <- "Nellore"
	require.Eventually(t, func() bool {
		return len(suggester.State().Suggestions) == 1
	}, time.Second, 5*time.Millisecond)

	lines <- ":select 1"
	require.Eventually(t, func() bool {
		return suggester.State().Selected != nil
	}, time.Second, 5*time.Millisecond)

	lines <- ":quit"
	close(lines)
	require.NoError(t, <-done)

	assert.True(t, strings.Contains(out.String(), "Nellore, Andhra Pradesh, India"))
	assert.Equal(t, "Nellore", suggester.State().Selected.City)
}
