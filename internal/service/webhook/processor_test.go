package webhook

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dm "shoplink-backend/internal/domain/messenger"
	domain "shoplink-backend/internal/domain/user"
	"shoplink-backend/internal/service/conversation"
)

type fakeRecorder struct {
	mu   sync.Mutex
	seen []string
}

func (f *fakeRecorder) Record(_ context.Context, id string) (*domain.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, id)
	return &domain.User{ExternalID: id}, len(f.seen) == 1
}

type sent struct {
	to  string
	msg dm.OutboundResponse
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sent
	failAt int // 1-based call that fails; 0 never
	calls  int
}

func (f *fakeSender) Send(_ context.Context, to string, msg dm.OutboundResponse) (*dm.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == f.failAt {
		return nil, errors.New("graph api down")
	}
	f.sent = append(f.sent, sent{to: to, msg: msg})
	return &dm.SendResult{RecipientID: to}, nil
}

func TestProcessRecordsAndReplies(t *testing.T) {
	rec := &fakeRecorder{}
	snd := &fakeSender{}
	p := NewProcessor(rec, snd, nil)

	p.Process(context.Background(), dm.NewPostbackEvent("u1", conversation.PayloadViewProducts))

	assert.Equal(t, []string{"u1"}, rec.seen)
	require.Len(t, snd.sent, 2)
	assert.Equal(t, "u1", snd.sent[0].to)
	assert.Equal(t, conversation.TextProductsIntro, snd.sent[0].msg.Text)
	assert.True(t, snd.sent[1].msg.IsTemplate())
}

func TestProcessInertEventOnlyRecords(t *testing.T) {
	rec := &fakeRecorder{}
	snd := &fakeSender{}
	NewProcessor(rec, snd, nil).Process(context.Background(), dm.NewInertEvent("u2"))

	assert.Equal(t, []string{"u2"}, rec.seen)
	assert.Empty(t, snd.sent)
}

func TestProcessContinuesAfterSendFailure(t *testing.T) {
	snd := &fakeSender{failAt: 1}
	NewProcessor(&fakeRecorder{}, snd, nil).
		Process(context.Background(), dm.NewPostbackEvent("u3", conversation.PayloadViewProducts))

	assert.Equal(t, 2, snd.calls)
	require.Len(t, snd.sent, 1)
	assert.True(t, snd.sent[0].msg.IsTemplate())
}
