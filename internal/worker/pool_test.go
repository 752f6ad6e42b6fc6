package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wa-relay/internal/model"
	"wa-relay/internal/storage"
)

type fakeSource struct {
	mu          sync.Mutex
	locations   map[string]string
	downloads   []string
	downloadErr error
	block       chan struct{}
}

func (f *fakeSource) FetchMediaLocation(_ context.Context, id string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	url, ok := f.locations[id]
	return url, ok
}

func (f *fakeSource) Download(_ context.Context, url string) ([]byte, string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, url)
	if f.downloadErr != nil {
		return nil, "", f.downloadErr
	}
	return []byte("bytes of " + url), "application/pdf", nil
}

func (f *fakeSource) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.downloads...)
}

func newFiles(t *testing.T) *storage.FileStore {
	fs, err := storage.NewFileStore(t.TempDir(), "http://relay.test")
	require.NoError(t, err)
	return fs
}

func TestPoolDownloadsAndSaves(t *testing.T) {
	src := &fakeSource{locations: map[string]string{"media-1": "https://lookaside.test/1"}}
	logger, _ := test.NewNullLogger()
	pool := NewWorkerPool(src, newFiles(t), 2, 4, logger)

	saved := make(chan storage.StoredFile, 1)
	pool.OnSaved(func(job MediaJob, f storage.StoredFile) {
		assert.Equal(t, "m1", job.MessageID)
		saved <- f
	})
	pool.Start(context.Background())
	defer pool.Stop()

	require.True(t, pool.Enqueue(MediaJob{MessageID: "m1", Type: model.TypeDocument, Media: model.MediaRef{MediaID: "media-1"}}))

	select {
	case f := <-saved:
		assert.True(t, strings.HasSuffix(f.Name, ".pdf"))
		assert.EqualValues(t, len("bytes of https://lookaside.test/1"), f.Size)
	case <-time.After(2 * time.Second):
		t.Fatal("media was not saved")
	}
	assert.Equal(t, []string{"https://lookaside.test/1"}, src.seen())
}

func TestPoolNeverDownloadsWebhookLinks(t *testing.T) {
	src := &fakeSource{locations: map[string]string{"media-3": "https://lookaside.test/3"}}
	logger, _ := test.NewNullLogger()
	pool := NewWorkerPool(src, newFiles(t), 1, 4, logger)
	pool.Start(context.Background())

	require.True(t, pool.Enqueue(MediaJob{MessageID: "m2", Type: model.TypeImage, Media: model.MediaRef{MediaURL: "https://attacker.test/a.jpg"}}))
	require.True(t, pool.Enqueue(MediaJob{MessageID: "m3", Type: model.TypeImage, Media: model.MediaRef{MediaID: "media-3", MediaURL: "https://attacker.test/b.jpg"}}))

	// one worker drains in order, so m2 is done once m3 is downloaded
	require.Eventually(t, func() bool { return len(src.seen()) == 1 }, 2*time.Second, 10*time.Millisecond)
	pool.Stop()
	assert.Equal(t, []string{"https://lookaside.test/3"}, src.seen())
}

func TestPoolSkipsWhenLocationUnknown(t *testing.T) {
	src := &fakeSource{locations: map[string]string{}}
	logger, _ := test.NewNullLogger()
	pool := NewWorkerPool(src, newFiles(t), 1, 4, logger)
	pool.Start(context.Background())

	pool.Enqueue(MediaJob{MessageID: "m3", Media: model.MediaRef{MediaID: "unknown"}})
	pool.Stop()

	assert.Empty(t, src.seen())
}

func TestPoolLogsDownloadFailure(t *testing.T) {
	src := &fakeSource{locations: map[string]string{"x": "https://lookaside.test/x"}, downloadErr: errors.New("boom")}
	logger, hook := test.NewNullLogger()
	pool := NewWorkerPool(src, newFiles(t), 1, 4, logger)
	pool.Start(context.Background())

	pool.Enqueue(MediaJob{MessageID: "m4", Media: model.MediaRef{MediaID: "x"}})
	require.Eventually(t, func() bool {
		for _, e := range hook.AllEntries() {
			if e.Message == "media download failed" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	pool.Stop()
}

func TestEnqueueNeverBlocks(t *testing.T) {
	src := &fakeSource{locations: map[string]string{"x": "u"}, block: make(chan struct{})}
	logger, _ := test.NewNullLogger()
	pool := NewWorkerPool(src, newFiles(t), 1, 1, logger)
	pool.Start(context.Background())

	job := MediaJob{MessageID: "m", Media: model.MediaRef{MediaID: "x"}}
	accepted := 0
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			if pool.Enqueue(job) {
				accepted++
			}
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked")
	}
	assert.Less(t, accepted, 10)

	close(src.block)
	pool.Stop()
	assert.False(t, pool.Enqueue(job))
}
