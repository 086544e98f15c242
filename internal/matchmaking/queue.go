package matchmaking

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/songifi/lyricsflip-matchmaker/internal/models"
	"go.uber.org/zap"
)

// Queue 대기 중인 매칭 요청의 유일한 소유자.
// 모든 변경은 하나의 owner 고루틴이 command 채널로 받아 순서대로 처리한다.
// 스케줄러 틱도 Exec 를 통해 하나의 command 로 실행되므로 틱 도중에
// Enqueue/Cancel 이 끼어들 수 없다.
type Queue struct {
	cmds     chan func()
	done     chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger

	// owner 고루틴만 접근
	state *QueueTxn

	// 변경이 있을 때마다 교체되는 불변 스냅샷 (lock-free 읽기)
	snapshot atomic.Pointer[[]models.MatchRequest]
}

// QueueTxn owner 고루틴 안에서만 유효한 큐 상태 핸들
type QueueTxn struct {
	entries []queued
	index   map[string]struct{}
	dirty   bool
}

type queued struct {
	req models.MatchRequest
}

func NewQueue(logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}

	q := &Queue{
		cmds:   make(chan func()),
		done:   make(chan struct{}),
		logger: logger,
		state:  &QueueTxn{index: make(map[string]struct{})},
	}
	empty := []models.MatchRequest{}
	q.snapshot.Store(&empty)

	go q.run()
	return q
}

func (q *Queue) run() {
	for {
		select {
		case cmd := <-q.cmds:
			q.apply(cmd)
		case <-q.done:
			return
		}
	}
}

func (q *Queue) apply(cmd func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("Recovered panic in queue command", zap.Any("panic", r))
		}
		if q.state.dirty {
			q.publish()
		}
	}()
	cmd()
}

func (q *Queue) publish() {
	snap := make([]models.MatchRequest, len(q.state.entries))
	for i, e := range q.state.entries {
		snap[i] = e.req
	}
	q.snapshot.Store(&snap)
	q.state.dirty = false
}

// Exec fn 을 owner 고루틴에서 실행한다. fn 이 반환할 때까지 다른 변경은 처리되지 않는다.
// fn 안에서는 Queue 메서드 대신 tx 를 사용해야 한다 (교착 상태).
func (q *Queue) Exec(ctx context.Context, fn func(tx *QueueTxn)) error {
	finished := make(chan struct{})
	var rejected bool
	cmd := func() {
		defer close(finished)
		// Close 와 경합해서 수락된 command 는 실행하지 않는다
		select {
		case <-q.done:
			rejected = true
			return
		default:
		}
		fn(q.state)
	}

	select {
	case q.cmds <- cmd:
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// 한번 수락된 command 는 끝까지 기다린다
	<-finished
	if rejected {
		return ErrQueueClosed
	}
	return nil
}

// Close owner 고루틴 종료. 이후 모든 변경은 ErrQueueClosed.
func (q *Queue) Close() {
	q.stopOnce.Do(func() {
		close(q.done)
	})
}

// Enqueue 요청 추가. 같은 playerId 가 이미 있으면 ErrDuplicateRequest.
func (q *Queue) Enqueue(req models.MatchRequest) error {
	var err error
	if execErr := q.Exec(context.Background(), func(tx *QueueTxn) {
		err = tx.Enqueue(req)
	}); execErr != nil {
		return execErr
	}
	return err
}

// Cancel 요청 제거. 실제로 제거했을 때만 true.
func (q *Queue) Cancel(playerID string) bool {
	var removed bool
	if err := q.Exec(context.Background(), func(tx *QueueTxn) {
		removed = tx.Cancel(playerID)
	}); err != nil {
		return false
	}
	return removed
}

// RemoveAll 여러 요청을 원자적으로 제거. 하나라도 없으면 아무것도 제거하지 않는다.
func (q *Queue) RemoveAll(playerIDs []string) error {
	var err error
	if execErr := q.Exec(context.Background(), func(tx *QueueTxn) {
		err = tx.RemoveAll(playerIDs)
	}); execErr != nil {
		return execErr
	}
	return err
}

// Snapshot requestedAt 오름차순 복사본. owner 를 거치지 않으므로 틱을 막지 않는다.
func (q *Queue) Snapshot() []models.MatchRequest {
	current := *q.snapshot.Load()
	out := make([]models.MatchRequest, len(current))
	for i, r := range current {
		out[i] = cloneRequest(r)
	}
	return out
}

// Len 현재 스냅샷 기준 대기 인원
func (q *Queue) Len() int {
	return len(*q.snapshot.Load())
}

// Get 스냅샷에서 요청과 0-based 순번 조회
func (q *Queue) Get(playerID string) (models.MatchRequest, int, bool) {
	for i, r := range *q.snapshot.Load() {
		if r.PlayerID == playerID {
			return cloneRequest(r), i, true
		}
	}
	return models.MatchRequest{}, -1, false
}

func (tx *QueueTxn) Enqueue(req models.MatchRequest) error {
	if _, exists := tx.index[req.PlayerID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRequest, req.PlayerID)
	}

	e := queued{req: cloneRequest(req)}

	// requestedAt 순서 유지, 같은 시각이면 도착 순
	pos := sort.Search(len(tx.entries), func(i int) bool {
		return tx.entries[i].req.RequestedAt.After(req.RequestedAt)
	})
	tx.entries = slices.Insert(tx.entries, pos, e)
	tx.index[req.PlayerID] = struct{}{}
	tx.dirty = true
	return nil
}

func (tx *QueueTxn) Cancel(playerID string) bool {
	if _, exists := tx.index[playerID]; !exists {
		return false
	}
	tx.remove(map[string]struct{}{playerID: {}})
	return true
}

func (tx *QueueTxn) RemoveAll(playerIDs []string) error {
	ids := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		if _, exists := tx.index[id]; !exists {
			return fmt.Errorf("%w: %s", ErrNotQueued, id)
		}
		ids[id] = struct{}{}
	}
	tx.remove(ids)
	return nil
}

func (tx *QueueTxn) remove(ids map[string]struct{}) {
	tx.entries = slices.DeleteFunc(tx.entries, func(e queued) bool {
		_, hit := ids[e.req.PlayerID]
		return hit
	})
	for id := range ids {
		delete(tx.index, id)
	}
	tx.dirty = true
}

func (tx *QueueTxn) Has(playerID string) bool {
	_, exists := tx.index[playerID]
	return exists
}

func (tx *QueueTxn) Len() int {
	return len(tx.entries)
}

// Snapshot owner 고루틴 안에서 본 일관된 복사본
func (tx *QueueTxn) Snapshot() []models.MatchRequest {
	out := make([]models.MatchRequest, len(tx.entries))
	for i, e := range tx.entries {
		out[i] = e.req
	}
	return out
}

func cloneRequest(req models.MatchRequest) models.MatchRequest {
	req.Preferences.Categories = slices.Clone(req.Preferences.Categories)
	req.Preferences.FriendIDs = slices.Clone(req.Preferences.FriendIDs)
	if req.Preferences.MaxWaitSeconds != nil {
		v := *req.Preferences.MaxWaitSeconds
		req.Preferences.MaxWaitSeconds = &v
	}
	return req
}
