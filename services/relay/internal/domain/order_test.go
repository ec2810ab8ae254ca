package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertEvent_IsOrderInsert(t *testing.T) {
	tests := []struct {
		name  string
		event InsertEvent
		want  bool
	}{
		{"order insert", InsertEvent{Type: "INSERT", Table: "orders"}, true},
		{"update", InsertEvent{Type: "UPDATE", Table: "orders"}, false},
		{"other table", InsertEvent{Type: "INSERT", Table: "products"}, false},
		{"lowercase", InsertEvent{Type: "insert", Table: "orders"}, false},
		{"empty", InsertEvent{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.IsOrderInsert())
		})
	}
}

func TestInsertEvent_DecodesWebhookPayload(t *testing.T) {
	raw := `{"type":"INSERT","table":"orders","schema":"public","record":{"id":"o-1","name":"Mona","phone":"+20100","address":"Cairo","product_id":"p-1","quantity":3,"created_at":"2026-03-01T10:00:00Z"},"old_record":null}`

	var e InsertEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.True(t, e.IsOrderInsert())
	assert.Equal(t, "p-1", e.Record.ProductID)
	assert.Equal(t, 3, e.Record.Quantity)
}

func TestProduct_TotalRoundsHalfAwayFromZero(t *testing.T) {
	p := Product{Price: decimal.RequireFromString("19.999")}
	assert.Equal(t, "60.00", p.Total(3).StringFixed(2))

	p = Product{Price: decimal.RequireFromString("0.125")}
	assert.Equal(t, "0.13", p.Total(1).StringFixed(2))
}
