package http

import (
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/mocks"
	"github.com/lorrc/case-event-hub/internal/core/routing"
	"github.com/lorrc/case-event-hub/internal/core/services"
)

const (
	liveCaseID   = "6f1c3a47-2c1b-4f4e-9a53-3c1e2a6f5b10"
	liveStatusID = "0b6d2f9e-5a7c-4f3d-8e21-7a9c4b2d1e30"
)

// A status change posted to the webhook reaches a browser subscribed to the
// case, carrying the status as detail.
func TestLiveFlow_StatusChangeReachesSubscribedBrowser(t *testing.T) {
	signals := mocks.NewMockSignalService()
	signals.On("HandleNotification", mock.Anything, mock.Anything).Maybe()

	svc := &lateNotificationService{}
	f := newAPIFixture(t, svc)
	dispatcher := services.NewAsyncDispatcher(f.hub, services.DispatcherConfig{
		Queue: services.QueueConfig{Delay: 10 * time.Millisecond},
	}, discardLogger())
	t.Cleanup(dispatcher.Shutdown)
	svc.NotificationService = services.NewNotificationService(routing.NewRouter(), dispatcher, signals, discardLogger())

	server := httptest.NewServer(f.router)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws?token=" + f.token(t, "jdoe")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.WriteJSON(map[string]any{
		"subscriptionType": "CREATE",
		"event": map[string]string{
			"opcode":     "ANY",
			"objectType": "CASE",
			"objectId":   liveCaseID,
		},
	}))
	caseKey := domain.SubscriptionKey{Type: domain.EventCase, Resource: liveCaseID}
	require.Eventually(t, func() bool {
		return len(f.hub.Subscribers(caseKey)) == 1
	}, time.Second, 10*time.Millisecond)

	body := `{
		"kanaal": "zaken",
		"hoofdObject": "https://zaken.example.com/zaken/api/v1/zaken/` + liveCaseID + `",
		"resource": "status",
		"resourceUrl": "https://zaken.example.com/zaken/api/v1/statussen/` + liveStatusID + `",
		"actie": "partial_update",
		"aanmaakdatum": "2026-10-19T09:30:00Z"
	}`
	req, err := stdhttp.NewRequest(stdhttp.MethodPost, server.URL+"/notifications", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", testNotifierSecret)
	req.Header.Set("Content-Type", "application/json")
	hookResp, err := server.Client().Do(req)
	require.NoError(t, err)
	_ = hookResp.Body.Close()
	require.Equal(t, stdhttp.StatusNoContent, hookResp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "UPDATED", frame["opcode"])
	assert.Equal(t, "CASE", frame["objectType"])
	assert.Equal(t, liveCaseID+";"+liveStatusID, frame["objectId"])
	assert.NotZero(t, frame["timestamp"])
}

// lateNotificationService lets the test build the router before the
// service that needs the router's hub.
type lateNotificationService struct {
	*services.NotificationService
}
