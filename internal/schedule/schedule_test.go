package schedule

import (
	"testing"
	"time"

	"github.com/senyabanana/auction-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStagesStructure(t *testing.T) {
	auction := models.NewTestAuction()
	now := time.Now()

	stages := BuildStages(auction, now)

	// 3 раунда по (пауза + ход каждого участника), затем два финальных этапа
	require.Len(t, stages, RoundsCount*(len(auction.Bids)+1)+2)

	expectedTypes := []models.StageType{
		models.StagePause, models.StageBids, models.StageBids,
		models.StagePause, models.StageBids, models.StageBids,
		models.StagePause, models.StageBids, models.StageBids,
		models.StagePreAnnouncement, models.StageAnnouncement,
	}
	for i, st := range stages {
		assert.Equal(t, expectedTypes[i], st.Type, "stage %d", i)
	}

	// ходы до назначения обезличены
	for i, st := range stages {
		if st.Type == models.StageBids {
			assert.Equal(t, BidderTBD, st.BidderID, "stage %d", i)
			require.NotNil(t, st.Label, "stage %d", i)
			assert.Equal(t, BidderTBD, st.Label.En, "stage %d", i)
		}
	}
}

func TestBuildStagesTiming(t *testing.T) {
	auction := models.NewTestAuction()
	startAt := auction.StartAt

	stages := BuildStages(auction, time.Now())

	assert.Equal(t, startAt, stages[0].Start)
	// первая пауза длиннее остальных
	assert.Equal(t, startAt.Add(FirstPauseDuration), stages[1].Start)
	assert.Equal(t, startAt.Add(FirstPauseDuration+TurnDuration), stages[2].Start)
	// вторая пауза начинается сразу после последнего хода первого раунда
	assert.Equal(t, stages[2].Start.Add(TurnDuration), stages[3].Start)
	assert.Equal(t, stages[3].Start.Add(TurnDuration), stages[4].Start)

	last := stages[len(stages)-1]
	preLast := stages[len(stages)-2]
	assert.Equal(t, preLast.Start.Add(TurnDuration), last.Start)
}

func TestBuildStagesDeterministic(t *testing.T) {
	auction := models.NewTestAuction()
	now := time.Now()

	first := BuildStages(auction, now)
	second := BuildStages(auction, now)
	assert.Equal(t, first, second)
}

func TestBuildStagesFastForward(t *testing.T) {
	auction := models.NewTestAuction()
	auction.Mode = "test-quick(mode:fast-forward)"
	now := time.Now()

	stages := BuildStages(auction, now)

	// все смещения нулевые, аукцион начинается немедленно
	assert.Equal(t, now, auction.StartAt)
	for _, st := range stages {
		assert.Equal(t, now, st.Start)
	}
}

func TestBuildStagesFastAuction(t *testing.T) {
	auction := models.NewTestAuction()
	auction.Mode = "test-quick(mode:fast-auction)"
	now := time.Now()

	stages := BuildStages(auction, now)

	// старт переносится, но раунды идут в штатном ритме
	assert.Equal(t, now.Add(FastAuctionStartAfter), auction.StartAt)
	assert.Equal(t, auction.StartAt, stages[0].Start)
	assert.Equal(t, auction.StartAt.Add(FirstPauseDuration), stages[1].Start)
}
