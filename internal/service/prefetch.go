package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"refhub/finder/internal/domain/task"
	"refhub/finder/internal/metrics"
	"refhub/finder/internal/queue"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

var ErrPrefetchDisabled = errors.New("prefetch queue is not configured")

// WithPrefetch enables background prefetch jobs backed by q.
func (s *Service) WithPrefetch(q queue.Queue, groupName string, minIdleTime time.Duration) *Service {
	s.queue = q
	s.groupName = groupName
	s.minIdleTime = minIdleTime
	s.readRetryDelay = time.Second
	return s
}

// EnqueuePrefetch schedules a background crawl of query and returns the job ID.
func (s *Service) EnqueuePrefetch(ctx context.Context, query string, maxPages int) (string, error) {
	if s.queue == nil {
		return "", ErrPrefetchDisabled
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("prefetch query is empty")
	}

	id, err := s.queue.AddTask(ctx, &task.PrefetchTask{Query: query, MaxPages: maxPages})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue prefetch for %q: %w", query, err)
	}

	log.Infof("📥 Queued prefetch of %q (%d pages) as %s", query, maxPages, id)
	return id, nil
}

// Prefetch crawls up to maxPages pages of query and stores every page in the
// cache and archive. It returns the number of pages stored.
func (s *Service) Prefetch(ctx context.Context, query string, maxPages int) (int, error) {
	stored := 0
	if maxPages < 1 {
		return stored, nil
	}

	for page, err := range s.client.Crawl(ctx, query) {
		if err != nil {
			return stored, s.fail(query, stored+1, err)
		}

		s.store(ctx, query, page.Pagination.CurrentPage, page)
		stored++

		if stored >= maxPages {
			break
		}
	}

	metrics.RecordSearch("prefetch")
	return stored, nil
}

// RunPrefetchWorkers consumes prefetch tasks until ctx is cancelled. A
// companion goroutine reclaims messages abandoned by dead consumers.
func (s *Service) RunPrefetchWorkers(ctx context.Context, numWorkers int) error {
	if s.queue == nil {
		return ErrPrefetchDisabled
	}

	var wg sync.WaitGroup
	streamName := queue.StreamName(task.PrefetchTaskType)

	if s.minIdleTime > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(s.minIdleTime)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					consumer := fmt.Sprintf("autoclaimer-%d", time.Now().UnixNano())
					claimed, err := s.queue.AutoClaim(ctx, s.groupName, consumer, streamName, s.minIdleTime)
					if err != nil {
						log.Errorf("❌ Failed to auto-claim prefetch tasks: %v", err)
						continue
					}
					for _, msg := range claimed {
						log.Infof("🔄 Auto-claimed prefetch task %s", msg.ID)
						if err := s.processMessage(ctx, &msg); err != nil {
							log.Errorf("❌ Failed to process auto-claimed message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}()
	}

	for i := 1; i <= numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			consumer := fmt.Sprintf("prefetch-worker-%d", workerID)
			log.Infof("🚀 Starting prefetch worker %d as consumer %s", workerID, consumer)
			for {
				select {
				case <-ctx.Done():
					log.Infof("🛑 Prefetch worker %d stopping", workerID)
					return
				default:
				}

				msg, err := s.queue.GetTask(ctx, s.groupName, consumer, streamName)
				if err != nil {
					if ctx.Err() == nil {
						log.Errorf("❌ Failed to get task from %s: %v", streamName, err)
						wait(ctx, s.readRetryDelay)
					}
					continue
				}
				if msg == nil {
					continue
				}

				if err := s.processMessage(ctx, msg); err != nil {
					log.Errorf("❌ Failed to process message %s: %v", msg.ID, err)
				}
			}
		}(i)
	}

	wg.Wait()
	return nil
}

// processMessage runs one prefetch task. Failed crawls are logged and
// acknowledged; they are not retried. Messages that cannot be decoded are
// acknowledged too and reported as an error.
func (s *Service) processMessage(ctx context.Context, msg *redis.XMessage) error {
	streamName := queue.StreamName(task.PrefetchTaskType)

	prefetch, err := decodePrefetch(msg)
	if err != nil {
		log.Warnf("⚠️ Dropping undecodable message %s: %v", msg.ID, err)
		if ackErr := s.queue.AckTask(ctx, streamName, s.groupName, msg.ID); ackErr != nil {
			return fmt.Errorf("failed to ack message %s: %w", msg.ID, ackErr)
		}
		return err
	}

	stored, err := s.Prefetch(ctx, prefetch.Query, prefetch.MaxPages)
	if err != nil {
		log.Warnf("⚠️ Prefetch of %q stopped after %d pages: %v", prefetch.Query, stored, err)
	} else {
		log.Infof("✅ Prefetched %d pages of %q", stored, prefetch.Query)
	}

	if err := s.queue.AckTask(ctx, streamName, s.groupName, msg.ID); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", msg.ID, err)
	}

	return nil
}

func decodePrefetch(msg *redis.XMessage) (*task.PrefetchTask, error) {
	taskType, ok := msg.Values["task_type"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid task type in message %s", msg.ID)
	}

	taskData, ok := msg.Values["task_data"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid task data in message %s", msg.ID)
	}

	if taskType != task.PrefetchTaskType {
		return nil, fmt.Errorf("unknown task type: %s", taskType)
	}

	prefetch, err := task.UnmarshalTask[task.PrefetchTask]([]byte(taskData))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal prefetch task data: %w", err)
	}

	return prefetch, nil
}

// wait pauses for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
