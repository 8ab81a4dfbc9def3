package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/narrinai/companion/store"
)

const (
	// defaultBatchSize bounds the parallel sends per batch; the delay
	// between batches keeps the provider's rate limit happy.
	defaultBatchSize  = 8
	defaultBatchDelay = 250 * time.Millisecond

	// deadlineReserve is how much of the budget is left unconsumed: no new
	// batch starts when less than this remains.
	deadlineReserve = 2 * time.Second

	checkinLookbackDays = 7
)

// CheckinMailer sends the periodic "how are you doing" email to recently
// active users in bounded parallel batches.
type CheckinMailer struct {
	store      *store.Store
	sender     Sender
	batchSize  int
	batchDelay time.Duration
}

// NewCheckinMailer creates a CheckinMailer with default batching.
func NewCheckinMailer(st *store.Store, sender Sender) *CheckinMailer {
	return &CheckinMailer{
		store:      st,
		sender:     sender,
		batchSize:  defaultBatchSize,
		batchDelay: defaultBatchDelay,
	}
}

// Run sends check-in emails to users active in the last week. The context's
// deadline is the wall-clock budget: once less than deadlineReserve remains,
// no further batch is enqueued and the remaining users are skipped until the
// next run. Returns the number of emails attempted.
func (m *CheckinMailer) Run(ctx context.Context) (int, error) {
	since := time.Now().AddDate(0, 0, -checkinLookbackDays).Unix()
	users, err := m.store.ListUserIdentities(ctx, &store.FindUserIdentity{ActiveSinceTs: &since})
	if err != nil {
		return 0, err
	}

	attempted := 0
	for start := 0; start < len(users); start += m.batchSize {
		if budgetExceeded(ctx) {
			slog.Info("check-in mailer stopping before deadline",
				"attempted", attempted,
				"remaining", len(users)-start)
			break
		}

		end := start + m.batchSize
		if end > len(users) {
			end = len(users)
		}

		group, groupCtx := errgroup.WithContext(ctx)
		for _, user := range users[start:end] {
			if user.Email == "" {
				continue
			}
			attempted++
			group.Go(func() error {
				msg := checkinMessage(user)
				if err := m.sender.Send(groupCtx, msg); err != nil {
					// One failed recipient never aborts the batch.
					slog.Warn("check-in email failed", "email", user.Email, "error", err)
				}
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return attempted, err
		}

		if end < len(users) {
			select {
			case <-ctx.Done():
				return attempted, ctx.Err()
			case <-time.After(m.batchDelay):
			}
		}
	}
	return attempted, nil
}

// budgetExceeded reports whether the context is done or too close to its
// deadline to start another batch.
func budgetExceeded(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline) < deadlineReserve
	}
	return false
}

func checkinMessage(user *store.UserIdentity) *Message {
	name := user.Name
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf(`Hi %s,

Your companions have been thinking about you! It's been a little while since your last chat.

**Come say hi** — they remember where you left off.

_The Narrin team_`, name)

	return &Message{
		ToEmail:  user.Email,
		ToName:   user.Name,
		Subject:  "Your companions miss you",
		Markdown: body,
		Template: "checkin",
	}
}
