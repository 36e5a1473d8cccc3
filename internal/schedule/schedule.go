// Package schedule строит детерминированное расписание этапов аукциона.
package schedule

import (
	"strings"
	"time"

	"github.com/senyabanana/auction-service/internal/models"
)

const (
	// TurnDuration - длительность хода участника и коротких пауз.
	TurnDuration = 2 * time.Minute
	// FirstPauseDuration - пауза перед первым раундом.
	FirstPauseDuration = 5 * time.Minute
	// FastAuctionStartAfter - отсрочка старта в режиме fast-auction.
	FastAuctionStartAfter = 5 * time.Minute

	// RoundsCount - число раундов аукциона.
	RoundsCount = 3

	fastForwardSuffix = "quick(mode:fast-forward)"
	fastAuctionSuffix = "quick(mode:fast-auction)"
)

// Placeholder для участника хода до назначения порядка на паузе.
const BidderTBD = "TBD"

// BuildStages строит расписание этапов: три раунда (пауза + ход каждого участника),
// затем pre_announcement и announcement. Результат зависит только от числа
// участников, режима и момента старта. Для ускоренных режимов StartAt аукциона
// переносится и в самом аукционе.
func BuildStages(auction *models.Auction, now time.Time) []models.Stage {
	turn := TurnDuration
	firstPause := FirstPauseDuration

	switch {
	case strings.HasSuffix(auction.Mode, fastForwardSuffix):
		turn, firstPause = 0, 0
		auction.StartAt = now
	case strings.HasSuffix(auction.Mode, fastAuctionSuffix):
		auction.StartAt = now.Add(FastAuctionStartAfter)
	}

	startAt := auction.StartAt
	stages := make([]models.Stage, 0, RoundsCount*(len(auction.Bids)+1)+2)

	for round := 0; round < RoundsCount; round++ {
		stages = append(stages, models.Stage{
			Type:  models.StagePause,
			Start: startAt,
		})
		if round == 0 {
			startAt = startAt.Add(firstPause)
		} else {
			startAt = startAt.Add(turn)
		}
		for range auction.Bids {
			stages = append(stages, models.Stage{
				Type:  models.StageBids,
				Start: startAt,
				StageResult: models.StageResult{
					BidderID: BidderTBD,
					Label:    &models.Label{En: BidderTBD, Ru: BidderTBD, Uk: BidderTBD},
				},
			})
			startAt = startAt.Add(turn)
		}
	}

	stages = append(stages, models.Stage{
		Type:  models.StagePreAnnouncement,
		Start: startAt,
	})
	stages = append(stages, models.Stage{
		Type:  models.StageAnnouncement,
		Start: startAt.Add(turn),
	})
	return stages
}
