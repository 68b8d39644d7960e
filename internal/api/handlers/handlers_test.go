package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viewdesk/viewdesk/internal/core/chat"
	"github.com/viewdesk/viewdesk/internal/core/console"
	"github.com/viewdesk/viewdesk/internal/core/draft"
	"github.com/viewdesk/viewdesk/internal/core/history"
	"github.com/viewdesk/viewdesk/internal/core/profile"
	"github.com/viewdesk/viewdesk/internal/core/validation"
	"github.com/viewdesk/viewdesk/internal/discover/discovertest"
	"github.com/viewdesk/viewdesk/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(ctx context.Context, req chat.CompletionRequest) (string, error) {
	return s.reply, s.err
}

type testEnv struct {
	engine    *gin.Engine
	api       *discovertest.Server
	console   *console.Service
	profiles  *profile.Service
	completer *stubCompleter
}

func newTestEnv(t *testing.T, configured bool) *testEnv {
	t.Helper()
	ctx := context.Background()

	api := discovertest.NewServer(
		map[string]interface{}{
			"id":               "v1",
			"name":             "Hotels",
			"scheduleStrategy": "Weekly",
			"searchRequest": map[string]interface{}{
				"combinedTypeTree": []interface{}{"Thing|Place|LocalBusiness|LodgingBusiness"},
			},
		},
		map[string]interface{}{"id": "v2", "name": "Restaurants", "searchRequest": map[string]interface{}{}},
	)
	t.Cleanup(api.Close)

	kv := storage.NewMemoryKV()
	validator := validation.NewValidator()
	profiles := profile.NewService(kv, validator)
	if configured {
		_, err := profiles.Save(ctx, "", profile.Profile{Name: "Test", APIKey: "key-1234", Project: "proj", OpenAIKey: "sk-test"})
		require.NoError(t, err)
	}

	completer := &stubCompleter{}
	chatService := chat.NewService(kv, completer, validator, 0.4)
	svc := console.NewService(console.Deps{
		KV:       kv,
		Profiles: profiles,
		API:      api.DiscoverClient(),
		Mapper:   draft.NewMapper(draft.MapperOptions{EmitScheduleStrategy: true}),
		History:  history.NewStore(kv, history.DefaultLimit),
		Handoff:  chatService,
	})

	r := gin.New()
	consoleHandler := NewConsoleHandler(svc)
	viewHandler := NewViewHandler(svc)
	draftHandler := NewDraftHandler(svc)
	historyHandler := NewHistoryHandler(svc)
	compareHandler := NewCompareHandler(svc)
	navHandler := NewNavigationHandler(svc)
	profileHandler := NewProfileHandler(profiles, svc)
	chatHandler := NewChatHandler(chatService, profiles)

	r.POST("/console/bootstrap", consoleHandler.Bootstrap)
	r.GET("/console/state", consoleHandler.State)
	r.GET("/views", viewHandler.List)
	r.POST("/views", viewHandler.Create)
	r.PUT("/views/selected", viewHandler.Update)
	r.DELETE("/views/selected", viewHandler.Delete)
	r.POST("/views/selected/duplicate", viewHandler.Duplicate)
	r.GET("/views/selected/results", viewHandler.Results)
	r.GET("/views/selected/results/summary", viewHandler.ResultsSummary)
	r.POST("/views/:id/select", viewHandler.Select)
	r.GET("/draft", draftHandler.Get)
	r.PUT("/draft", draftHandler.Replace)
	r.GET("/draft/request", draftHandler.Request)
	r.POST("/draft/chat", draftHandler.ConsumeChat)
	r.POST("/draft/filters", draftHandler.AddFilter)
	r.PATCH("/draft/filters/:index", draftHandler.UpdateFilter)
	r.DELETE("/draft/filters/:index", draftHandler.RemoveFilter)
	r.POST("/draft/facets", draftHandler.AddFacet)
	r.PATCH("/draft/facets/:index", draftHandler.UpdateFacet)
	r.POST("/draft/facets/:index/move", draftHandler.MoveFacet)
	r.GET("/history", historyHandler.List)
	r.POST("/history/:index/restore", historyHandler.Restore)
	r.GET("/compare", compareHandler.Versions)
	r.GET("/compare/summary", compareHandler.Summary)
	r.GET("/compare/current/:index", compareHandler.WithCurrent)
	r.GET("/navigation", navHandler.Get)
	r.POST("/navigation/navigate", navHandler.Navigate)
	r.POST("/navigation/back", navHandler.Back)
	r.POST("/navigation/forward", navHandler.Forward)
	r.GET("/profiles", profileHandler.List)
	r.POST("/profiles", profileHandler.Create)
	r.GET("/profiles/current", profileHandler.Current)
	r.GET("/profiles/export", profileHandler.Export)
	r.GET("/profiles/:id", profileHandler.Get)
	r.POST("/profiles/import", profileHandler.Import)
	r.GET("/chat", chatHandler.Transcript)
	r.POST("/chat/messages", chatHandler.Send)
	r.GET("/chat/context", chatHandler.Context)
	r.POST("/chat/context", chatHandler.LoadContext)
	r.POST("/chat/apply", chatHandler.Apply)

	return &testEnv{engine: r, api: api, console: svc, profiles: profiles, completer: completer}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{console.ErrNotConfigured, http.StatusPreconditionFailed},
		{chat.ErrMissingAPIKey, http.StatusPreconditionFailed},
		{profile.ErrNotFound, http.StatusNotFound},
		{history.ErrVersionNotFound, http.StatusNotFound},
		{console.ErrNoSelection, http.StatusConflict},
		{profile.ErrConfirmationRequired, http.StatusConflict},
		{chat.ErrNoJSON, http.StatusUnprocessableEntity},
		{draft.ErrIndexOutOfRange, http.StatusBadRequest},
		{errInvalidIndex, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestBootstrap_DeepLink(t *testing.T) {
	e := newTestEnv(t, true)

	w := e.do(t, http.MethodPost, "/console/bootstrap", map[string]string{"url": "/?viewId=v1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, true, body["ready"])
	nav := body["navigation"].(map[string]interface{})
	assert.Equal(t, "v1", nav["selectedViewId"])
	assert.Equal(t, "Hotels", body["draft"].(map[string]interface{})["name"])
	assert.Equal(t, "****1234", body["settings"].(map[string]interface{})["apiKey"])
}

func TestBootstrap_EmptyBody(t *testing.T) {
	e := newTestEnv(t, false)

	w := e.do(t, http.MethodPost, "/console/bootstrap", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["ready"])
	assert.Equal(t, 0, e.api.Requests())
}

func TestViews_ListWithoutSettings(t *testing.T) {
	e := newTestEnv(t, false)

	w := e.do(t, http.MethodGet, "/views", nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, 0, e.api.Requests())
}

func TestViews_SelectAndUpdate(t *testing.T) {
	e := newTestEnv(t, true)
	e.do(t, http.MethodPost, "/console/bootstrap", nil)

	w := e.do(t, http.MethodPost, "/views/v1/select", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "/?viewId=v1", e.console.URL())

	w = e.do(t, http.MethodPatch, "/draft/filters/0", map[string]string{"field": "values", "value": "Thing|Place"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPut, "/views/selected", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, ok := e.api.View("v1")
	require.True(t, ok)
	sr := stored["searchRequest"].(map[string]interface{})
	assert.Equal(t, []interface{}{"Thing|Place"}, sr["combinedTypeTree"])

	w = e.do(t, http.MethodGet, "/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decodeBody(t, w)["entries"].([]interface{})
	assert.Len(t, entries, 1)
}

func TestViews_UpdateFailureIsModal(t *testing.T) {
	e := newTestEnv(t, true)
	e.do(t, http.MethodPost, "/console/bootstrap", map[string]string{"url": "/?viewId=v1"})
	e.api.FailUpdate = true

	w := e.do(t, http.MethodPut, "/views/selected", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["modal"])
	apiErr := body["error"].(map[string]interface{})
	assert.Equal(t, float64(http.StatusBadRequest), apiErr["status"])
	assert.NotNil(t, apiErr["data"])
}

func TestViews_UpdateWithoutSelection(t *testing.T) {
	e := newTestEnv(t, true)
	e.do(t, http.MethodPost, "/console/bootstrap", nil)

	w := e.do(t, http.MethodPut, "/views/selected", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestViews_CreateAndDuplicate(t *testing.T) {
	e := newTestEnv(t, true)
	e.do(t, http.MethodPost, "/console/bootstrap", map[string]string{"url": "/?viewId=v1"})

	w := e.do(t, http.MethodPost, "/views/selected/duplicate", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "v3", decodeBody(t, w)["selectedViewId"])

	copied, ok := e.api.View("v3")
	require.True(t, ok)
	assert.Equal(t, "Hotels (Copy)", copied["name"])

	w = e.do(t, http.MethodPost, "/views", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Empty(t, e.console.SelectedViewID())
}

func TestViews_ResultsSummary(t *testing.T) {
	e := newTestEnv(t, true)
	e.api.Results = map[string]interface{}{
		"count":  float64(1),
		"values": []interface{}{map[string]interface{}{"name": "Hotel Alpina", "identifier": "h1"}},
	}
	e.do(t, http.MethodPost, "/console/bootstrap", map[string]string{"url": "/?viewId=v1"})

	w := e.do(t, http.MethodGet, "/views/selected/results", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/views/selected/results/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["count"])
	row := body["rows"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Hotel Alpina", row["name"])
	assert.Equal(t, "-", row["additionalType"])
}

func TestDraft_EditCommands(t *testing.T) {
	e := newTestEnv(t, true)

	w := e.do(t, http.MethodPost, "/draft/facets", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = e.do(t, http.MethodPost, "/draft/facets", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodPatch, "/draft/facets/1", map[string]string{"field": "name", "value": "award"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/draft/facets/1/move", map[string]string{"direction": "up"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	facets := decodeBody(t, w)["facets"].([]interface{})
	assert.Equal(t, "award", facets[0].(map[string]interface{})["name"])

	w = e.do(t, http.MethodPost, "/draft/facets/0/move", map[string]string{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodDelete, "/draft/filters/5", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodDelete, "/draft/filters/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPatch, "/draft/facets/0", map[string]string{"field": "colour", "value": "red"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDraft_ReplaceAndRequest(t *testing.T) {
	e := newTestEnv(t, true)
	e.do(t, http.MethodPost, "/console/bootstrap", nil)

	w := e.do(t, http.MethodPut, "/draft", map[string]interface{}{
		"name":    "Museums",
		"filters": []interface{}{map[string]interface{}{"type": "category", "values": []string{"museum"}}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, string(draft.DefaultSchedule), decodeBody(t, w)["scheduleStrategy"])

	w = e.do(t, http.MethodGet, "/draft/request", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Museums", body["name"])
	sr := body["searchRequest"].(map[string]interface{})
	assert.Equal(t, []interface{}{"museum"}, sr["category"])
	assert.Equal(t, []interface{}{"proj"}, sr["project"])
}

func TestHistory_RestoreAndCompare(t *testing.T) {
	e := newTestEnv(t, true)
	e.do(t, http.MethodPost, "/console/bootstrap", map[string]string{"url": "/?viewId=v1"})
	e.do(t, http.MethodPut, "/draft", map[string]interface{}{"name": "Hotels 2"})
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPut, "/views/selected", nil).Code)

	w := e.do(t, http.MethodGet, "/compare/summary", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeBody(t, w)["summaries"], 1)

	w = e.do(t, http.MethodGet, "/compare/current/0", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := decodeBody(t, w)["stats"].(map[string]interface{})
	assert.Greater(t, stats["added"].(float64)+stats["removed"].(float64)+stats["changed"].(float64), float64(0))

	w = e.do(t, http.MethodGet, "/compare?a=0&b=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/compare?a=nope&b=current", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/compare/current/7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, "/history/0/restore", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Hotels", decodeBody(t, w)["name"])
}

func TestNavigation_BackAndForward(t *testing.T) {
	e := newTestEnv(t, true)
	e.do(t, http.MethodPost, "/console/bootstrap", nil)
	e.do(t, http.MethodPost, "/views/v1/select", nil)
	e.do(t, http.MethodPost, "/views/v2/select", nil)

	w := e.do(t, http.MethodPost, "/navigation/back", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "v1", body["selectedViewId"])
	assert.Equal(t, true, body["canGoForward"])

	w = e.do(t, http.MethodPost, "/navigation/forward", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v2", decodeBody(t, w)["selectedViewId"])

	w = e.do(t, http.MethodPost, "/navigation/navigate", map[string]string{"url": "/"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", decodeBody(t, w)["selectedViewId"])

	w = e.do(t, http.MethodPost, "/navigation/navigate", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfiles_CreateListExport(t *testing.T) {
	e := newTestEnv(t, false)

	w := e.do(t, http.MethodPost, "/profiles", map[string]string{"name": "Prod", "apiKey": "secret-9999", "project": "p1", "env": "prod"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decodeBody(t, w)["id"].(string)
	assert.NotEmpty(t, id)

	w = e.do(t, http.MethodGet, "/profiles/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "****9999", decodeBody(t, w)["profile"].(map[string]interface{})["apiKey"])

	w = e.do(t, http.MethodGet, "/profiles/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, "/profiles/current", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["ready"])
	assert.True(t, e.console.State().Ready, "console picks up the new profile")

	w = e.do(t, http.MethodGet, "/profiles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entry := decodeBody(t, w)["profiles"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "****9999", entry["profile"].(map[string]interface{})["apiKey"])

	w = e.do(t, http.MethodGet, "/profiles/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "secret-9999")

	w = e.do(t, http.MethodPost, "/profiles", map[string]string{"name": "Broken"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfiles_ImportNeedsConfirmation(t *testing.T) {
	e := newTestEnv(t, true)
	doc := `{"configs": {"a": {"name": "Imported", "apiKey": "k", "project": "p"}}, "currentConfigId": "a"}`

	w := e.do(t, http.MethodPost, "/profiles/import", doc)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/profiles/import?confirm=true", doc)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decodeBody(t, w)["imported"])

	w = e.do(t, http.MethodPost, "/profiles/import?confirm=true", "[1, 2]")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_SendAndApply(t *testing.T) {
	e := newTestEnv(t, true)
	e.completer.reply = "Here you go:\n```json\n{\"name\": \"Spas\", \"searchRequest\": {\"category\": [\"spa\"]}}\n```"

	w := e.do(t, http.MethodPost, "/chat/messages", map[string]string{"message": "make a spa view"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeBody(t, w)["messages"], 2)

	w = e.do(t, http.MethodPost, "/chat/apply", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/draft/chat", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["applied"])
	assert.Equal(t, "Spas", body["draft"].(map[string]interface{})["name"])
}

func TestChat_CompletionFailureKeepsTranscript(t *testing.T) {
	e := newTestEnv(t, true)
	e.completer.err = errors.New("Incorrect API key provided")

	w := e.do(t, http.MethodPost, "/chat/messages", map[string]string{"message": "hello"})
	require.Equal(t, http.StatusBadGateway, w.Code)

	body := decodeBody(t, w)
	messages := body["transcript"].(map[string]interface{})["messages"].([]interface{})
	last := messages[len(messages)-1].(map[string]interface{})
	assert.Contains(t, last["content"], "Incorrect API key provided")
}

func TestChat_Errors(t *testing.T) {
	e := newTestEnv(t, false)

	w := e.do(t, http.MethodPost, "/chat/messages", map[string]string{"message": "hello"})
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	w = e.do(t, http.MethodPost, "/chat/apply", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.do(t, http.MethodPost, "/chat/context", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestChat_ContextFromConsole(t *testing.T) {
	e := newTestEnv(t, true)
	e.do(t, http.MethodPost, "/console/bootstrap", map[string]string{"url": "/?viewId=v2"})

	w := e.do(t, http.MethodPost, "/chat/context", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decodeBody(t, w)["view"].(map[string]interface{})
	assert.Equal(t, "Restaurants", view["name"])

	w = e.do(t, http.MethodPost, "/chat/context", map[string]interface{}{"view": map[string]interface{}{"id": "x", "name": "Other"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Other", decodeBody(t, w)["view"].(map[string]interface{})["name"])

	w = e.do(t, http.MethodGet, "/chat/context", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "x", decodeBody(t, w)["view"].(map[string]interface{})["id"])
}
