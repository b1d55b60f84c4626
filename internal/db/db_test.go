package db

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamiewalsh/careerprep/internal/types"
)

func TestUserJSONExcludesPasswordHash(t *testing.T) {
	user := User{
		Name:         "Test User",
		Email:        "test@example.com",
		PasswordHash: "$2a$10$secret",
		PasswordSet:  true,
	}

	data, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password_hash")
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), "password_set")
}

func TestRoadmapRecordRoundTrip(t *testing.T) {
	record := RoadmapRecord{
		Roadmap: types.Roadmap{
			Title: "Learn SQL",
			Steps: []types.Step{{Title: "Joins"}, {Title: "Indexes"}},
		},
		Completed: []bool{true, false},
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded RoadmapRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, record.Roadmap.Title, decoded.Roadmap.Title)
	assert.Equal(t, record.Completed, decoded.Completed)
}
