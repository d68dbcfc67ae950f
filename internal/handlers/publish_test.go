package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sns-notify/internal/models"
	"sns-notify/internal/pipeline"
)

const testTopic = "arn:aws:sns:us-east-2:123456789012:alerts"

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, req models.PublishRequest) (*models.Acknowledgment, error) {
	args := m.Called(ctx, req)
	ack, _ := args.Get(0).(*models.Acknowledgment)
	return ack, args.Error(1)
}

func newTestRouter(pub *mockPublisher, maxBody int64, corsOrigins []string) http.Handler {
	p := pipeline.New(pub, testTopic, time.Second, zerolog.Nop())
	return NewRouter(NewPublishHandler(p, maxBody), corsOrigins, zerolog.Nop())
}

func TestPublishHandler_Publish(t *testing.T) {
	subject := "hi"

	testCases := []struct {
		name           string
		path           string
		body           string
		setup          func(pub *mockPublisher)
		expectedStatus int
		expectedBody   map[string]string
		expectPublish  bool
	}{
		{
			name: "Successful publish returns the acknowledgment",
			path: "/",
			body: `{"message":"hello","subject":"hi"}`,
			setup: func(pub *mockPublisher) {
				pub.On("Publish", mock.Anything, models.PublishRequest{Message: "hello", Subject: &subject, Topic: testTopic}).
					Return(&models.Acknowledgment{MessageID: "95df01b4-ee98-5cb9-9903-4c221d41eb5e"}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   map[string]string{"MessageId": "95df01b4-ee98-5cb9-9903-4c221d41eb5e"},
			expectPublish:  true,
		},
		{
			name: "Any path is accepted",
			path: "/notify/ops",
			body: `{"message":"hello"}`,
			setup: func(pub *mockPublisher) {
				pub.On("Publish", mock.Anything, models.PublishRequest{Message: "hello", Topic: testTopic}).
					Return(&models.Acknowledgment{MessageID: "m-2"}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   map[string]string{"MessageId": "m-2"},
			expectPublish:  true,
		},
		{
			name:           "Malformed JSON",
			path:           "/",
			body:           `{not json`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]string{"kind": "serialization_failure"},
		},
		{
			name:           "Missing message",
			path:           "/",
			body:           `{"subject":"hi"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]string{"kind": "serialization_failure", "message": "normalize: missing field `message`"},
		},
		{
			name:           "Empty message",
			path:           "/",
			body:           `{"message":""}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]string{"kind": "invalid_input", "message": "validate: message must not be empty"},
		},
		{
			name:           "Body over the size limit",
			path:           "/",
			body:           `{"message":"` + strings.Repeat("x", 2048) + `"}`,
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedBody:   map[string]string{"kind": "invalid_input"},
		},
		{
			name: "Transport failure",
			path: "/",
			body: `{"message":"hello"}`,
			setup: func(pub *mockPublisher) {
				pub.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp 10.0.0.1:443: connect: connection refused")).Once()
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody: map[string]string{
				"kind":    "transport_failure",
				"message": "publish: could not reach SNS: dial tcp 10.0.0.1:443: connect: connection refused",
			},
			expectPublish: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pub := new(mockPublisher)
			if tc.setup != nil {
				tc.setup(pub)
			}
			router := newTestRouter(pub, 1024, nil)

			req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var got map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			for k, v := range tc.expectedBody {
				assert.Equal(t, v, got[k], "field %q", k)
			}
			if tc.expectedStatus != http.StatusOK {
				assert.NotEmpty(t, got["message"])
			}

			if tc.expectPublish {
				pub.AssertNumberOfCalls(t, "Publish", 1)
			} else {
				pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestPublishHandler_ConcurrentRequestsAreIndependent(t *testing.T) {
	pub := new(mockPublisher)

	// Both calls must be in flight at the same time before either returns.
	var inFlight sync.WaitGroup
	inFlight.Add(2)
	rendezvous := func(mock.Arguments) {
		inFlight.Done()
		inFlight.Wait()
	}
	pub.On("Publish", mock.Anything, models.PublishRequest{Message: "first", Topic: testTopic}).
		Run(rendezvous).Return(nil, errors.New("connection reset by peer")).Once()
	pub.On("Publish", mock.Anything, models.PublishRequest{Message: "second", Topic: testTopic}).
		Run(rendezvous).Return(&models.Acknowledgment{MessageID: "m-second"}, nil).Once()

	router := newTestRouter(pub, 1024, nil)

	results := make(map[string]*httptest.ResponseRecorder)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, msg := range []string{"first", "second"} {
		wg.Add(1)
		go func(msg string) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"`+msg+`"}`))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			mu.Lock()
			results[msg] = rr
			mu.Unlock()
		}(msg)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("requests were not handled concurrently")
	}

	assert.Equal(t, http.StatusBadGateway, results["first"].Code)
	assert.Equal(t, http.StatusOK, results["second"].Code)
	assert.JSONEq(t, `{"MessageId":"m-second"}`, results["second"].Body.String())
	pub.AssertExpectations(t)
	pub.AssertNumberOfCalls(t, "Publish", 2)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	pub := new(mockPublisher)
	router := newTestRouter(pub, 1024, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestRouter_CORSPreflight(t *testing.T) {
	pub := new(mockPublisher)
	router := newTestRouter(pub, 1024, []string{"https://status.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://status.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "https://status.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}
