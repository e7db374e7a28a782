package toolbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tickerInput struct {
	Ticker string `json:"ticker" jsonschema_description:"Stock ticker symbol, e.g. AAPL"`
	Days   int    `json:"days,omitempty"`
}

func TestSchemaFor(t *testing.T) {
	raw := SchemaFor[tickerInput]()

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))

	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "ticker")
	assert.Contains(t, props, "days")

	ticker, _ := props["ticker"].(map[string]any)
	assert.Equal(t, "string", ticker["type"])
	assert.Equal(t, "Stock ticker symbol, e.g. AAPL", ticker["description"])

	assert.Equal(t, []any{"ticker"}, schema["required"])
}

func TestToolHandler(t *testing.T) {
	tool := Tool{
		Name:        "echo",
		Description: "Echoes input back",
		InputSchema: SchemaFor[tickerInput](),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var in tickerInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			return in.Ticker, nil
		},
	}

	result, err := tool.Handler(context.Background(), json.RawMessage(`{"ticker":"IBM"}`))
	require.NoError(t, err)
	assert.Equal(t, "IBM", result)
}
