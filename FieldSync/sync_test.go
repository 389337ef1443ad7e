package FieldSync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "fieldsync.db"))
	require.NoError(t, err)
	return store
}

// scriptedServer answers each POST with the next status in sequence and
// records the received payloads.
type scriptedServer struct {
	mu       sync.Mutex
	statuses []int
	received []map[string]interface{}
	server   *httptest.Server
}

func newScriptedServer(t *testing.T, statuses ...int) *scriptedServer {
	t.Helper()
	s := &scriptedServer{statuses: statuses}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		s.received = append(s.received, payload)

		status := http.StatusCreated
		if len(s.statuses) > 0 {
			status = s.statuses[0]
			s.statuses = s.statuses[1:]
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *scriptedServer) requests() []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]interface{}(nil), s.received...)
}

func TestDraftLifecycle(t *testing.T) {
	store := newTestStore(t)
	key := DraftKey(7, 42)

	draft, err := store.LoadDraft(key)
	require.NoError(t, err)
	require.Nil(t, draft)

	require.NoError(t, store.SaveDraft(key, map[string]string{"findings": "טיוטה ראשונה"}))
	require.NoError(t, store.SaveDraft(key, map[string]string{"findings": "טיוטה מעודכנת"}))

	draft, err = store.LoadDraft(key)
	require.NoError(t, err)
	require.NotNil(t, draft)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(draft.Payload, &payload))
	require.Equal(t, "טיוטה מעודכנת", payload["findings"])

	require.NoError(t, store.ClearDraft(key))
	draft, err = store.LoadDraft(key)
	require.NoError(t, err)
	require.Nil(t, draft)

	// Clearing again is a no-op.
	require.NoError(t, store.ClearDraft(key))
}

func TestSubmitOfflineQueuesWithoutNetworkCall(t *testing.T) {
	store := newTestStore(t)
	server := newScriptedServer(t)

	pipeline := &Pipeline{
		Store: store,
		Submitter: &Submitter{
			BaseURL: server.server.URL,
			Online:  func() bool { return false },
		},
	}

	key := DraftKey(1, 0)
	require.NoError(t, store.SaveDraft(key, map[string]string{"findings": "ממצאים"}))

	outcome, _, err := pipeline.Submit(context.Background(), key, map[string]string{"findings": "ממצאים"})
	require.NoError(t, err)
	require.Equal(t, OutcomeQueued, outcome)

	require.Empty(t, server.requests())

	length, err := store.QueueLength()
	require.NoError(t, err)
	require.Equal(t, 1, length)

	// The draft survives queueing; only confirmed delivery clears it.
	draft, err := store.LoadDraft(key)
	require.NoError(t, err)
	require.NotNil(t, draft)
}

func TestSubmitDeliveredClearsDraft(t *testing.T) {
	store := newTestStore(t)
	server := newScriptedServer(t, http.StatusCreated)

	pipeline := &Pipeline{
		Store:     store,
		Submitter: &Submitter{BaseURL: server.server.URL},
	}

	key := DraftKey(1, 5)
	require.NoError(t, store.SaveDraft(key, map[string]string{"findings": "ממצאים"}))

	outcome, attempt, err := pipeline.Submit(context.Background(), key, map[string]string{"findings": "ממצאים"})
	require.NoError(t, err)
	require.Equal(t, OutcomeDelivered, outcome)
	require.Equal(t, Delivered, attempt.Classification)

	draft, err := store.LoadDraft(key)
	require.NoError(t, err)
	require.Nil(t, draft)

	length, err := store.QueueLength()
	require.NoError(t, err)
	require.Zero(t, length)
}

func TestSubmitValidationRejectionKeepsDraft(t *testing.T) {
	store := newTestStore(t)
	server := newScriptedServer(t, http.StatusBadRequest)

	pipeline := &Pipeline{
		Store:     store,
		Submitter: &Submitter{BaseURL: server.server.URL},
	}

	key := DraftKey(1, 5)
	require.NoError(t, store.SaveDraft(key, map[string]string{"findings": ""}))

	outcome, attempt, err := pipeline.Submit(context.Background(), key, map[string]string{"findings": ""})
	require.NoError(t, err)
	require.Equal(t, OutcomeRejected, outcome)
	require.Equal(t, ValidationRejected, attempt.Classification)

	// The inspector corrects and resubmits; nothing was queued.
	length, err := store.QueueLength()
	require.NoError(t, err)
	require.Zero(t, length)

	draft, err := store.LoadDraft(key)
	require.NoError(t, err)
	require.NotNil(t, draft)
}

func TestSubmitRetryableStatusQueues(t *testing.T) {
	store := newTestStore(t)
	server := newScriptedServer(t, http.StatusServiceUnavailable)

	pipeline := &Pipeline{
		Store:     store,
		Submitter: &Submitter{BaseURL: server.server.URL},
	}

	outcome, attempt, err := pipeline.Submit(context.Background(), "", map[string]string{"findings": "ממצאים"})
	require.NoError(t, err)
	require.Equal(t, OutcomeQueued, outcome)
	require.Equal(t, Retryable, attempt.Classification)

	length, err := store.QueueLength()
	require.NoError(t, err)
	require.Equal(t, 1, length)
}

func TestClassifyStatus(t *testing.T) {
	require.Equal(t, Delivered, classifyStatus(201))
	require.Equal(t, ValidationRejected, classifyStatus(400))
	require.Equal(t, NotFound, classifyStatus(404))
	require.Equal(t, Retryable, classifyStatus(429))
	require.Equal(t, Retryable, classifyStatus(502))
	require.Equal(t, Retryable, classifyStatus(503))
	require.Equal(t, Retryable, classifyStatus(504))
	require.Equal(t, NonRetryable, classifyStatus(500))
	require.Equal(t, NonRetryable, classifyStatus(403))
}

func enqueuePayload(t *testing.T, store *Store, localID, draftKey, marker string) {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"marker": marker})
	require.NoError(t, err)
	require.NoError(t, store.Enqueue(QueuedSubmission{
		LocalID:  localID,
		DraftKey: draftKey,
		Payload:  datatypes.JSON(raw),
	}))
}

func TestDrainOnceDeliversInOrder(t *testing.T) {
	store := newTestStore(t)
	server := newScriptedServer(t)

	enqueuePayload(t, store, "a", "", "first")
	enqueuePayload(t, store, "b", "", "second")
	enqueuePayload(t, store, "c", "", "third")

	driver := &SyncDriver{
		Store:     store,
		Submitter: &Submitter{BaseURL: server.server.URL},
	}

	result, err := driver.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, DrainResult{Delivered: 3}, result)

	requests := server.requests()
	require.Len(t, requests, 3)
	require.Equal(t, "first", requests[0]["marker"])
	require.Equal(t, "second", requests[1]["marker"])
	require.Equal(t, "third", requests[2]["marker"])

	length, err := store.QueueLength()
	require.NoError(t, err)
	require.Zero(t, length)
}

func TestDrainOnceRetainsTransientFailures(t *testing.T) {
	store := newTestStore(t)
	// First submission hits a 503 and stays queued; the drain continues and
	// delivers the second.
	server := newScriptedServer(t, http.StatusServiceUnavailable, http.StatusCreated)

	enqueuePayload(t, store, "a", "", "first")
	enqueuePayload(t, store, "b", "", "second")

	driver := &SyncDriver{
		Store:     store,
		Submitter: &Submitter{BaseURL: server.server.URL},
	}

	result, err := driver.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, DrainResult{Delivered: 1, Retained: 1}, result)

	queue, err := store.Queue()
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Equal(t, "a", queue[0].LocalID)
}

func TestDrainOnceDeadLettersPermanentFailures(t *testing.T) {
	store := newTestStore(t)
	server := newScriptedServer(t, http.StatusForbidden)

	enqueuePayload(t, store, "a", "", "first")

	driver := &SyncDriver{
		Store:     store,
		Submitter: &Submitter{BaseURL: server.server.URL},
	}

	result, err := driver.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, DrainResult{Failed: 1}, result)

	length, err := store.QueueLength()
	require.NoError(t, err)
	require.Zero(t, length)

	letters, err := store.DeadLetters()
	require.NoError(t, err)
	require.Len(t, letters, 1)
	require.Equal(t, "a", letters[0].LocalID)
	require.Equal(t, http.StatusForbidden, letters[0].StatusCode)
}

func TestDrainOnceClearsDraftOnDelivery(t *testing.T) {
	store := newTestStore(t)
	server := newScriptedServer(t)

	key := DraftKey(3, 9)
	require.NoError(t, store.SaveDraft(key, map[string]string{"findings": "ממצאים"}))
	enqueuePayload(t, store, "a", key, "queued")

	driver := &SyncDriver{
		Store:     store,
		Submitter: &Submitter{BaseURL: server.server.URL},
	}

	result, err := driver.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, DrainResult{Delivered: 1}, result)

	draft, err := store.LoadDraft(key)
	require.NoError(t, err)
	require.Nil(t, draft)
}

func TestDrainOnceRejectsConcurrentDrains(t *testing.T) {
	store := newTestStore(t)

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	enqueuePayload(t, store, "a", "", "slow")

	driver := &SyncDriver{
		Store:     store,
		Submitter: &Submitter{BaseURL: server.URL},
	}

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := driver.DrainOnce(context.Background())
		done <- err
	}()

	<-started
	// Give the first drain time to claim the guard and block on the server.
	require.Eventually(t, func() bool {
		_, err := driver.DrainOnce(context.Background())
		return err == ErrDrainInProgress
	}, time.Second, 10*time.Millisecond)

	release <- struct{}{}
	require.NoError(t, <-done)
}

func TestEnqueueDeduplicatesByLocalID(t *testing.T) {
	store := newTestStore(t)

	enqueuePayload(t, store, "same", "", "v1")
	enqueuePayload(t, store, "same", "", "v2")

	queue, err := store.Queue()
	require.NoError(t, err)
	require.Len(t, queue, 1)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(queue[0].Payload, &payload))
	require.Equal(t, "v2", payload["marker"])
}
