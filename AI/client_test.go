package AI

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"Rishui/Models"

	"github.com/stretchr/testify/require"
)

func fakeCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-3.5-turbo-1106",
			"choices": []map[string]interface{}{
				{
					"index": 0,
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": content,
					},
					"finish_reason": "stop",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
}

func TestNewClientDisabledWithoutKey(t *testing.T) {
	require.Nil(t, NewClient("", ""))
	require.Nil(t, NewClient("  ", ""))
	require.Nil(t, NewClient("your_openai_api_key", ""))
	require.NotNil(t, NewClient("sk-test", ""))
}

func TestAnalyzeFindingsParsesFencedJSON(t *testing.T) {
	server := fakeCompletionServer(t, "```json\n{\"riskLevel\":\"High\",\"summary\":\"דליפת גז\",\"recommendations\":[\"לסגור את הגז\",\"להזמין טכנאי\"]}\n```")
	defer server.Close()

	client := NewClient("sk-test", server.URL+"/v1")
	assessment, err := client.AnalyzeFindings(context.Background(), "gas leak near stove")
	require.NoError(t, err)
	require.Equal(t, Models.RiskHigh, assessment.RiskLevel)
	require.Equal(t, "דליפת גז", assessment.Summary)
	require.Len(t, assessment.Recommendations, 2)
}

func TestAnalyzeFindingsRejectsMalformedResponse(t *testing.T) {
	server := fakeCompletionServer(t, "the findings look dangerous")
	defer server.Close()

	client := NewClient("sk-test", server.URL+"/v1")
	_, err := client.AnalyzeFindings(context.Background(), "gas leak")
	require.Error(t, err)
}

func TestAnalyzeFindingsRejectsUnknownRiskLevel(t *testing.T) {
	server := fakeCompletionServer(t, `{"riskLevel":"Severe","summary":"x","recommendations":[]}`)
	defer server.Close()

	client := NewClient("sk-test", server.URL+"/v1")
	_, err := client.AnalyzeFindings(context.Background(), "gas leak")
	require.Error(t, err)
}
