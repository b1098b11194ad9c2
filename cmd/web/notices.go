package main

import (
	"net/http"
	"sync/atomic"

	"github.com/myrjola/survey/internal/autosave"
	"github.com/myrjola/survey/internal/broker"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
)

// notice tells stream listeners that a background save gave up after all retries.
type notice struct {
	seq     uint64
	Error   string `json:"error"`
	Message string `json:"message"`
	Job     string `json:"job"`
}

// noticeBoard publishes save failures to the questionnaire streams that are open when they happen.
type noticeBoard struct {
	seq         atomic.Uint64
	broadcaster *broker.Broadcaster[notice]
}

func newNoticeBoard() *noticeBoard {
	return &noticeBoard{
		seq:         atomic.Uint64{},
		broadcaster: broker.NewBroadcaster[notice](),
	}
}

// saveFailed is the autosave failure hook.
func (n *noticeBoard) saveFailed(job autosave.Job, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, models.ErrStoreUnavailable) {
		status = http.StatusServiceUnavailable
	}
	n.broadcaster.Publish(notice{
		seq:     n.seq.Add(1),
		Error:   http.StatusText(status),
		Message: "your changes could not be saved, please try again",
		Job:     job.Name,
	})
}

// subscribe returns the notices published from now on. The broadcaster replays its latest value to new subscribers,
// so anything at or below the returned sequence number is old news.
func (n *noticeBoard) subscribe() (notices <-chan notice, after uint64, unsubscribe func()) {
	after = n.seq.Load()
	notices, unsubscribe = n.broadcaster.Subscribe()
	return notices, after, unsubscribe
}
