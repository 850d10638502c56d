package notify

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftwatch/shiftwatch/internal/model"
)

func batchOf(n int) *model.NotificationBatch {
	batch := &model.NotificationBatch{}
	for i := 0; i < n; i++ {
		batch.Records = append(batch.Records, model.CodeRecord{
			RawCode:        fmt.Sprintf("CODE%d-AAAAA-BBBBB-CCCCC-DDDDD", i),
			NormalizedCode: fmt.Sprintf("CODE%dAAAAABBBBBCCCCCDDDDD", i),
			RewardType:     model.RewardUnknown,
			Source:         "HTML:https://example.com",
			IsActive:       true,
		})
	}
	return batch
}

func TestBuildMessagesEmptyBatch(t *testing.T) {
	assert.Nil(t, buildMessages(&model.NotificationBatch{}, 5, 5, ""))
}

func TestBuildMessagesThresholdBoundary(t *testing.T) {
	// Exactly at the threshold: one message per code.
	msgs := buildMessages(batchOf(5), 5, 5, "https://redeem.example")
	require.Len(t, msgs, 5)
	for i, msg := range msgs {
		assert.Equal(t, fmt.Sprintf("CODE%d-AAAAA-BBBBB-CCCCC-DDDDD", i), msg.Code)
		assert.Equal(t, model.RewardUnknown, msg.Reward)
		assert.Equal(t, "HTML:https://example.com", msg.Source)
		assert.Equal(t, "https://redeem.example", msg.RedeemURL)
	}

	// One above the threshold: a single summary.
	msgs = buildMessages(batchOf(6), 5, 5, "")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Title, "6 new")
	assert.Contains(t, msgs[0].Body, "and 1 more")
	assert.Contains(t, msgs[0].Body, "suppressed")
	assert.Empty(t, msgs[0].Code)
}

func TestBuildMessagesZeroThresholdForcesSummary(t *testing.T) {
	msgs := buildMessages(batchOf(1), 0, 5, "")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Title, "1 new")
}

func TestBuildMessagesSummarySample(t *testing.T) {
	msgs := buildMessages(batchOf(9), 5, 3, "")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Body, "and 6 more")
	// Only the first three codes are listed.
	assert.Equal(t, 3, strings.Count(msgs[0].Body, "CODE"))
}

func TestBuildMessagesSkipsInactive(t *testing.T) {
	batch := batchOf(3)
	batch.Records[1].IsActive = false

	msgs := buildMessages(batch, 5, 5, "")
	require.Len(t, msgs, 2)
	for _, msg := range msgs {
		assert.NotEqual(t, batch.Records[1].RawCode, msg.Code)
	}

	// All inactive: silence.
	for i := range batch.Records {
		batch.Records[i].IsActive = false
	}
	assert.Nil(t, buildMessages(batch, 5, 5, ""))
}

func TestBuildMessagesSevenUnknown(t *testing.T) {
	msgs := buildMessages(batchOf(7), 5, 5, "")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Title, "7 new")
	assert.Contains(t, msgs[0].Body, model.RewardUnknown)
}
