package workers

import (
	"context"
	"log"
	"time"

	"github.com/comitanigiacomo/fitdash/internal/core/domain"
)

type SessionStore interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Update(ctx context.Context, s domain.Session) error
}

// TokenJob carries credentials the upstream client refreshed mid-request.
type TokenJob struct {
	SessionID    string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}

type TokenWorker struct {
	store SessionStore
	jobs  chan TokenJob
}

func NewTokenWorker(store SessionStore) *TokenWorker {
	return &TokenWorker{
		store: store,
		jobs:  make(chan TokenJob, 100),
	}
}

func (w *TokenWorker) Start(ctx context.Context) {
	go func() {
		log.Println("Token Worker started in background...")
		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ctx.Done():
				log.Println("Token Worker shutting down...")
				return
			}
		}
	}()
}

func (w *TokenWorker) Enqueue(job TokenJob) {
	select {
	case w.jobs <- job:
	default:
		log.Printf("Token Worker queue full! Dropping refresh for session %s", job.SessionID)
	}
}

func (w *TokenWorker) processJob(ctx context.Context, job TokenJob) {
	sess, err := w.store.Get(ctx, job.SessionID)
	if err != nil {
		log.Printf("Worker Error fetching session %s: %v", job.SessionID, err)
		return
	}
	if sess == nil {
		log.Printf("Worker: session %s is gone, refreshed token discarded", job.SessionID)
		return
	}

	if !applyToken(sess, job) {
		return
	}

	if err := w.store.Update(ctx, *sess); err != nil {
		log.Printf("Worker Failed to persist refreshed token for session %s: %v", job.SessionID, err)
	} else {
		log.Printf("Token refreshed for user %s, expires %s", sess.ProviderUserID, sess.Expiry.Format(time.RFC3339))
	}
}

// applyToken reports whether the session changed.
func applyToken(sess *domain.Session, job TokenJob) bool {
	if job.AccessToken == "" || job.AccessToken == sess.AccessToken {
		return false
	}

	sess.AccessToken = job.AccessToken
	if job.RefreshToken != "" {
		sess.RefreshToken = job.RefreshToken
	}
	if job.TokenType != "" {
		sess.TokenType = job.TokenType
	}
	sess.Expiry = job.Expiry
	return true
}
