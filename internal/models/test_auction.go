package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewTestAuction создает тестовый аукцион с двумя участниками.
// Используется в тестах и для песочницы.
func NewTestAuction() *Auction {
	uid := strings.ReplaceAll(uuid.NewString(), "-", "")
	startAt := time.Now().Add(30 * time.Second)
	amount1, amount2 := 132.22, 232.66
	stepAmount := 35.0

	auction := &Auction{
		ID:                    uid,
		TenderID:              uid,
		TenderSlug:            fmt.Sprintf("UA-%s", uid),
		CurrentStage:          CurrentStageInitial,
		AuctionType:           AuctionDefault,
		ProcurementMethodType: "belowThreshold",
		Title:                 "Title",
		TitleEn:               "Title En",
		ProcuringEntity: &ProcuringEntity{
			Name:   "procuringEntity Name",
			NameEn: "procuringEntity Name EN",
		},
		MinimalStep: &Value{
			Amount:   &stepAmount,
			Currency: "UAH",
		},
		StartAt: startAt,
		Timer:   &startAt,
		Bids: []Bid{
			{
				ID:     strings.Repeat("a", 32),
				Hash:   strings.ReplaceAll(uuid.NewString(), "-", ""),
				Name:   "Bidder#1 Name",
				Date:   startAt.Add(-2 * time.Hour),
				Value:  Value{Amount: &amount1},
				Stages: map[string]*PostedBid{},
			},
			{
				ID:     strings.Repeat("b", 32),
				Hash:   strings.ReplaceAll(uuid.NewString(), "-", ""),
				Name:   "Bidder#2 Name",
				Date:   startAt.Add(-time.Hour),
				Value:  Value{Amount: &amount2},
				Stages: map[string]*PostedBid{},
			},
		},
	}
	return auction
}
