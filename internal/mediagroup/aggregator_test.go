package mediagroup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectAlbums() (*Aggregator, chan Album) {
	flushed := make(chan Album, 4)
	a := New(Options{
		Debounce: 20 * time.Millisecond,
		OnFlush:  func(album Album) { flushed <- album },
	})
	return a, flushed
}

func waitAlbum(t *testing.T, ch chan Album) Album {
	t.Helper()
	select {
	case album := <-ch:
		return album
	case <-time.After(2 * time.Second):
		t.Fatal("album was never flushed")
		return Album{}
	}
}

func TestAggregatorFlushesOneAlbum(t *testing.T) {
	a, flushed := collectAlbums()

	a.Add(Item{ChatID: 1, MediaGroupID: "g1", FileID: "f1"})
	a.Add(Item{ChatID: 1, MediaGroupID: "g1", FileID: "f2", Caption: "My title"})
	a.Add(Item{ChatID: 1, MediaGroupID: "g1", FileID: "f3"})

	album := waitAlbum(t, flushed)
	assert.Equal(t, int64(1), album.ChatID)
	assert.Equal(t, "My title", album.Caption, "caption may ride on any item")
	assert.Equal(t, []string{"f1", "f2", "f3"}, album.FileIDs, "arrival order preserved")

	select {
	case extra := <-flushed:
		t.Fatalf("unexpected second flush: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAggregatorSeparatesGroupsAndChats(t *testing.T) {
	a, flushed := collectAlbums()

	a.Add(Item{ChatID: 1, MediaGroupID: "g1", FileID: "a1"})
	a.Add(Item{ChatID: 1, MediaGroupID: "g2", FileID: "b1"})
	a.Add(Item{ChatID: 2, MediaGroupID: "g1", FileID: "c1"})

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		album := waitAlbum(t, flushed)
		require.Len(t, album.FileIDs, 1)
		seen[album.FileIDs[0]] = true
	}
	assert.Equal(t, map[string]bool{"a1": true, "b1": true, "c1": true}, seen)
}

func TestAggregatorIgnoresNonAlbumItems(t *testing.T) {
	a, flushed := collectAlbums()

	a.Add(Item{ChatID: 1, FileID: "no-group"})
	a.Add(Item{ChatID: 1, MediaGroupID: "g1"})

	select {
	case album := <-flushed:
		t.Fatalf("unexpected flush: %+v", album)
	case <-time.After(100 * time.Millisecond):
	}
}
