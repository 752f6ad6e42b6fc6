package worker

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"wa-relay/internal/metrics"
	"wa-relay/internal/model"
	"wa-relay/internal/storage"
)

// MediaJob asks the pool to fetch the attachment of a received message.
type MediaJob struct {
	MessageID string
	Type      model.MessageType
	Media     model.MediaRef
}

type MediaSource interface {
	FetchMediaLocation(ctx context.Context, mediaID string) (string, bool)
	Download(ctx context.Context, url string) ([]byte, string, error)
}

type FileSaver interface {
	Save(original string, data []byte) (storage.StoredFile, error)
}

// WorkerPool downloads inbound media in the background. Failures are logged
// and counted, never reported to the webhook caller.
type WorkerPool struct {
	source  MediaSource
	files   FileSaver
	log     logrus.FieldLogger
	workers int

	jobs    chan MediaJob
	stopCh  chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	onSaved func(MediaJob, storage.StoredFile)
}

func NewWorkerPool(source MediaSource, files FileSaver, workerCount, queueSize int, log logrus.FieldLogger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WorkerPool{
		source:  source,
		files:   files,
		log:     log.WithField("component", "media-worker"),
		workers: workerCount,
		jobs:    make(chan MediaJob, queueSize),
		stopCh:  make(chan struct{}),
	}
}

// OnSaved registers a callback run after each successful download. Must be
// called before Start.
func (wp *WorkerPool) OnSaved(fn func(MediaJob, storage.StoredFile)) {
	wp.onSaved = fn
}

func (wp *WorkerPool) Start(ctx context.Context) {
	wp.log.WithField("workers", wp.workers).Info("starting media worker pool")

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go func() {
			defer wp.wg.Done()
			metrics.WorkerActive.Inc()
			defer metrics.WorkerActive.Dec()

			for {
				select {
				case <-wp.stopCh:
					return
				case <-ctx.Done():
					return
				case job := <-wp.jobs:
					wp.handle(ctx, job)
				}
			}
		}()
	}
}

// Stop signals the workers and waits for in-flight jobs. Queued jobs that
// were not picked up are dropped.
func (wp *WorkerPool) Stop() {
	wp.once.Do(func() { close(wp.stopCh) })
	wp.wg.Wait()
	wp.log.Info("media worker pool stopped")
}

// Enqueue never blocks. It reports false when the job was dropped because the
// queue is full or the pool is stopping.
func (wp *WorkerPool) Enqueue(job MediaJob) bool {
	select {
	case <-wp.stopCh:
		return false
	default:
	}

	select {
	case wp.jobs <- job:
		return true
	default:
		metrics.WorkerProcessed.WithLabelValues("dropped").Inc()
		wp.log.WithField("message_id", job.MessageID).Warn("media queue full, dropping job")
		return false
	}
}

func (wp *WorkerPool) handle(ctx context.Context, job MediaJob) {
	log := wp.log.WithFields(logrus.Fields{"message_id": job.MessageID, "media_id": job.Media.MediaID})

	// Only provider-issued media ids are fetched. A link in the webhook is
	// never downloaded since Download carries the access token.
	if job.Media.MediaID == "" {
		metrics.WorkerProcessed.WithLabelValues("skipped").Inc()
		log.Debug("no media id, nothing to download")
		return
	}
	location, ok := wp.source.FetchMediaLocation(ctx, job.Media.MediaID)
	if !ok {
		metrics.WorkerProcessed.WithLabelValues("location_failed").Inc()
		return
	}

	data, contentType, err := wp.source.Download(ctx, location)
	if err != nil {
		metrics.WorkerProcessed.WithLabelValues("download_failed").Inc()
		log.WithError(err).Warn("media download failed")
		return
	}

	stored, err := wp.files.Save(job.MessageID+storage.ExtensionFor(contentType), data)
	if err != nil {
		metrics.WorkerProcessed.WithLabelValues("save_failed").Inc()
		log.WithError(err).Error("failed to save media")
		return
	}

	metrics.WorkerProcessed.WithLabelValues("ok").Inc()
	log.WithFields(logrus.Fields{"file": stored.Name, "bytes": stored.Size}).Info("media downloaded")
	if wp.onSaved != nil {
		wp.onSaved(job, stored)
	}
}
